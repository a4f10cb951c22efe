package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/store"
)

const trackedItemColumns = `id, learner_id, title, author, description, status, completed, completed_at, created_at, updated_at`

// PostgresTrackedItemStore implements store.TrackedItemStore.
type PostgresTrackedItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTrackedItemStore creates a tracked item store on db.
// If logger is nil, a default logger will be used.
func NewPostgresTrackedItemStore(db store.DBTX, logger *slog.Logger) *PostgresTrackedItemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTrackedItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "tracked_item_store")),
	}
}

var _ store.TrackedItemStore = (*PostgresTrackedItemStore)(nil)

// Create implements store.TrackedItemStore.Create.
func (s *PostgresTrackedItemStore) Create(ctx context.Context, item *domain.TrackedItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("tracked item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", item.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tracked_items (` + trackedItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.LearnerID,
		item.Title,
		item.Author,
		item.Description,
		string(item.Status),
		item.Completed,
		toNullTime(item.CompletedAt),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create tracked item",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", item.ID.String()))
		return MapError(err)
	}

	log.Info("tracked item created",
		slog.String("tracked_item_id", item.ID.String()),
		slog.String("learner_id", item.LearnerID.String()))
	return nil
}

// GetByID implements store.TrackedItemStore.GetByID.
func (s *PostgresTrackedItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrackedItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + trackedItemColumns + ` FROM tracked_items WHERE id = $1`
	item, err := scanTrackedItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("tracked item not found", slog.String("tracked_item_id", id.String()))
			return nil, store.ErrTrackedItemNotFound
		}
		log.Error("failed to get tracked item",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", id.String()))
		return nil, MapError(err)
	}
	return item, nil
}

// ListByLearner implements store.TrackedItemStore.ListByLearner.
func (s *PostgresTrackedItemStore) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.TrackedItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + trackedItemColumns + ` FROM tracked_items WHERE learner_id = $1 ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to list tracked items",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, MapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return items, nil
}

// Update implements store.TrackedItemStore.Update.
func (s *PostgresTrackedItemStore) Update(ctx context.Context, item *domain.TrackedItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tracked_items
		SET status = $2, completed = $3, completed_at = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		item.ID,
		string(item.Status),
		item.Completed,
		toNullTime(item.CompletedAt),
		item.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update tracked item",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", item.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTrackedItemNotFound); err != nil {
		return err
	}

	log.Debug("tracked item updated",
		slog.String("tracked_item_id", item.ID.String()),
		slog.String("status", string(item.Status)),
		slog.Bool("completed", item.Completed))
	return nil
}

// ClaimForIngestion implements store.TrackedItemStore.ClaimForIngestion.
// A concurrent claim blocks on the row lock and then re-checks the status,
// so it sees the winner's processing status and updates nothing.
func (s *PostgresTrackedItemStore) ClaimForIngestion(
	ctx context.Context,
	learnerID, id uuid.UUID,
	at time.Time,
) (*domain.TrackedItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tracked_items
		SET status = $3, updated_at = $4
		WHERE id = $1 AND learner_id = $2 AND status <> $3
		RETURNING ` + trackedItemColumns
	item, err := scanTrackedItem(s.db.QueryRowContext(ctx, query,
		id, learnerID, string(domain.TrackedItemStatusProcessing), at.UTC()))
	if err == nil {
		log.Debug("tracked item claimed for ingestion", slog.String("tracked_item_id", id.String()))
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to claim tracked item",
			slog.String("error", err.Error()),
			slog.String("tracked_item_id", id.String()))
		return nil, MapError(err)
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tracked_items WHERE id = $1 AND learner_id = $2)`,
		id, learnerID,
	).Scan(&exists)
	switch {
	case err != nil:
		return nil, MapError(err)
	case !exists:
		return nil, store.ErrTrackedItemNotFound
	default:
		return nil, store.ErrTrackedItemBusy
	}
}

// WithTx implements store.TrackedItemStore.WithTx.
func (s *PostgresTrackedItemStore) WithTx(tx *sql.Tx) store.TrackedItemStore {
	return &PostgresTrackedItemStore{db: tx, logger: s.logger}
}

func scanTrackedItem(row rowScanner) (*domain.TrackedItem, error) {
	var (
		item        domain.TrackedItem
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(
		&item.ID,
		&item.LearnerID,
		&item.Title,
		&item.Author,
		&item.Description,
		&status,
		&item.Completed,
		&completedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Status = domain.TrackedItemStatus(status)
	item.CompletedAt = fromNullTime(completedAt)
	return &item, nil
}
