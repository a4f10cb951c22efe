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

// PostgresSummaryStore implements store.SummaryStore.
type PostgresSummaryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSummaryStore creates a summary store on db.
func NewPostgresSummaryStore(db store.DBTX, logger *slog.Logger) *PostgresSummaryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSummaryStore{
		db:     db,
		logger: logger.With(slog.String("component", "summary_store")),
	}
}

var _ store.SummaryStore = (*PostgresSummaryStore)(nil)

// Create implements store.SummaryStore.Create.
func (s *PostgresSummaryStore) Create(ctx context.Context, sum *domain.SummaryRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sum.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO summaries (id, learner_id, tracked_item_id, chapter_id, title, summary, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		sum.ID,
		sum.LearnerID,
		toNullUUID(sum.TrackedItemID),
		toNullUUID(sum.ChapterID),
		sum.Title,
		sum.Summary,
		sum.Failed,
		sum.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create summary",
			slog.String("error", err.Error()),
			slog.String("summary_id", sum.ID.String()))
		return MapError(err)
	}

	log.Debug("summary created",
		slog.String("summary_id", sum.ID.String()),
		slog.Bool("failed", sum.Failed))
	return nil
}

// ListByTrackedItem implements store.SummaryStore.ListByTrackedItem.
func (s *PostgresSummaryStore) ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.SummaryRecord, error) {
	query := `
		SELECT id, learner_id, tracked_item_id, chapter_id, title, summary, failed, created_at
		FROM summaries
		WHERE tracked_item_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, trackedItemID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list summaries",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", trackedItemID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.SummaryRecord
	for rows.Next() {
		var (
			sum       domain.SummaryRecord
			itemID    uuid.NullUUID
			chapterID uuid.NullUUID
		)
		if err := rows.Scan(&sum.ID, &sum.LearnerID, &itemID, &chapterID,
			&sum.Title, &sum.Summary, &sum.Failed, &sum.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		sum.TrackedItemID = fromNullUUID(itemID)
		sum.ChapterID = fromNullUUID(chapterID)
		out = append(out, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// WithTx implements store.SummaryStore.WithTx.
func (s *PostgresSummaryStore) WithTx(tx *sql.Tx) store.SummaryStore {
	return &PostgresSummaryStore{db: tx, logger: s.logger}
}
