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

// PostgresChapterStore implements store.ChapterStore.
type PostgresChapterStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChapterStore creates a chapter store on db.
func NewPostgresChapterStore(db store.DBTX, logger *slog.Logger) *PostgresChapterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresChapterStore{
		db:     db,
		logger: logger.With(slog.String("component", "chapter_store")),
	}
}

var _ store.ChapterStore = (*PostgresChapterStore)(nil)

// Create implements store.ChapterStore.Create.
func (s *PostgresChapterStore) Create(ctx context.Context, ch *domain.Chapter) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ch.Validate(); err != nil {
		log.Warn("chapter validation failed during create",
			slog.String("error", err.Error()),
			slog.Int("index", ch.Index))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO chapters (id, learner_id, tracked_item_id, idx, title, start_offset, end_offset, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		ch.ID,
		ch.LearnerID,
		toNullUUID(ch.TrackedItemID),
		ch.Index,
		ch.Title,
		ch.Start,
		ch.End,
		ch.Content,
		ch.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create chapter",
			slog.String("error", err.Error()),
			slog.String("chapter_id", ch.ID.String()),
			slog.Int("index", ch.Index))
		return MapError(err)
	}

	log.Debug("chapter created",
		slog.String("chapter_id", ch.ID.String()),
		slog.Int("index", ch.Index),
		slog.Int("length", len(ch.Content)))
	return nil
}

// ListByTrackedItem implements store.ChapterStore.ListByTrackedItem.
func (s *PostgresChapterStore) ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.Chapter, error) {
	query := `
		SELECT id, learner_id, tracked_item_id, idx, title, start_offset, end_offset, content, created_at
		FROM chapters
		WHERE tracked_item_id = $1
		ORDER BY idx, created_at
	`
	rows, err := s.db.QueryContext(ctx, query, trackedItemID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list chapters",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", trackedItemID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var chapters []*domain.Chapter
	for rows.Next() {
		var (
			ch     domain.Chapter
			itemID uuid.NullUUID
		)
		if err := rows.Scan(&ch.ID, &ch.LearnerID, &itemID, &ch.Index, &ch.Title,
			&ch.Start, &ch.End, &ch.Content, &ch.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		ch.TrackedItemID = fromNullUUID(itemID)
		chapters = append(chapters, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return chapters, nil
}

// CountByTrackedItem implements store.ChapterStore.CountByTrackedItem.
func (s *PostgresChapterStore) CountByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chapters WHERE tracked_item_id = $1`, trackedItemID).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// WithTx implements store.ChapterStore.WithTx.
func (s *PostgresChapterStore) WithTx(tx *sql.Tx) store.ChapterStore {
	return &PostgresChapterStore{db: tx, logger: s.logger}
}
