package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/store"
)

// PostgresQuizItemStore implements store.QuizItemStore.
type PostgresQuizItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuizItemStore creates a quiz item store on db.
func NewPostgresQuizItemStore(db store.DBTX, logger *slog.Logger) *PostgresQuizItemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQuizItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "quiz_item_store")),
	}
}

var _ store.QuizItemStore = (*PostgresQuizItemStore)(nil)

// CreateMultiple implements store.QuizItemStore.CreateMultiple.
func (s *PostgresQuizItemStore) CreateMultiple(ctx context.Context, items []*domain.QuizItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, q := range items {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	query := `
		INSERT INTO quiz_items (id, chapter_id, question, answer, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, q := range items {
		if _, err := s.db.ExecContext(ctx, query, q.ID, q.ChapterID, q.Question, q.Answer, q.CreatedAt); err != nil {
			log.Error("failed to create quiz item",
				slog.String("error", err.Error()),
				slog.String("chapter_id", q.ChapterID.String()))
			return MapError(err)
		}
	}

	log.Debug("quiz items created", slog.Int("count", len(items)))
	return nil
}

// ListByChapter implements store.QuizItemStore.ListByChapter.
func (s *PostgresQuizItemStore) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*domain.QuizItem, error) {
	query := `
		SELECT id, chapter_id, question, answer, created_at
		FROM quiz_items
		WHERE chapter_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, chapterID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.QuizItem
	for rows.Next() {
		var q domain.QuizItem
		if err := rows.Scan(&q.ID, &q.ChapterID, &q.Question, &q.Answer, &q.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		out = append(out, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// WithTx implements store.QuizItemStore.WithTx.
func (s *PostgresQuizItemStore) WithTx(tx *sql.Tx) store.QuizItemStore {
	return &PostgresQuizItemStore{db: tx, logger: s.logger}
}
