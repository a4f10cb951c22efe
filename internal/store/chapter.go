package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// ChapterStore persists resolved chapters.
type ChapterStore interface {
	// Create saves one chapter.
	Create(ctx context.Context, chapter *domain.Chapter) error

	// ListByTrackedItem returns the chapters of an item ordered by index.
	ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.Chapter, error)

	// CountByTrackedItem returns how many chapters an item has.
	CountByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) (int, error)

	// WithTx returns a ChapterStore bound to tx.
	WithTx(tx *sql.Tx) ChapterStore
}
