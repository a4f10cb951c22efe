package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// QuizItemStore persists question/answer pairs generated for chapters.
type QuizItemStore interface {
	// CreateMultiple saves quiz items. Run it inside a transaction so a
	// chapter's items are stored together or not at all.
	CreateMultiple(ctx context.Context, items []*domain.QuizItem) error

	// ListByChapter returns the quiz items of one chapter.
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*domain.QuizItem, error)

	// WithTx returns a QuizItemStore bound to tx.
	WithTx(tx *sql.Tx) QuizItemStore
}
