package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/phrazzld/scry-reader/internal/store"
)

const reminderTaskColumns = `id, tracked_item_id, type, stage, scheduled_for, sent, sent_at, attempts, last_error, created_at, updated_at`

// PostgresReminderTaskStore implements store.ReminderTaskStore.
type PostgresReminderTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReminderTaskStore creates a reminder task store on db.
func NewPostgresReminderTaskStore(db store.DBTX, logger *slog.Logger) *PostgresReminderTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReminderTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "reminder_task_store")),
	}
}

var _ store.ReminderTaskStore = (*PostgresReminderTaskStore)(nil)

// CreateBatch implements store.ReminderTaskStore.CreateBatch.
// Run it inside a transaction so a schedule is stored whole.
func (s *PostgresReminderTaskStore) CreateBatch(ctx context.Context, tasks []*domain.ReminderTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	query := `
		INSERT INTO reminder_tasks (` + reminderTaskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, t := range tasks {
		_, err := s.db.ExecContext(ctx, query,
			t.ID,
			t.TrackedItemID,
			string(t.Type),
			t.Stage,
			t.ScheduledFor,
			t.Sent,
			toNullTime(t.SentAt),
			t.Attempts,
			t.LastError,
			t.CreatedAt,
			t.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create reminder task",
				slog.String("error", err.Error()),
				slog.String("tracked_item_id", t.TrackedItemID.String()),
				slog.String("type", string(t.Type)),
				slog.Int("stage", t.Stage))
			return MapError(err)
		}
	}

	log.Info("reminder tasks created", slog.Int("count", len(tasks)))
	return nil
}

// FindDue implements store.ReminderTaskStore.FindDue.
func (s *PostgresReminderTaskStore) FindDue(ctx context.Context, q store.DueQuery) ([]*domain.ReminderTask, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT ` + reminderTaskColumns + `
		FROM reminder_tasks
		WHERE NOT sent
		  AND scheduled_for <= $1
		  AND ($2::int = 0 OR attempts < $2::int)`)
	args := []any{q.Now.UTC(), q.MaxAttempts}

	if q.After != nil {
		args = append(args, q.After.ScheduledFor.UTC(), q.After.ID)
		b.WriteString(`
		  AND (scheduled_for, id) > ($3::timestamptz, $4::uuid)`)
	}
	b.WriteString(`
		ORDER BY scheduled_for, id`)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, `
		LIMIT $%d`, len(args))
	}
	return s.query(ctx, "find due reminder tasks", b.String(), args...)
}

// MarkSent implements store.ReminderTaskStore.MarkSent.
func (s *PostgresReminderTaskStore) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE reminder_tasks
		SET sent = TRUE, sent_at = $2, last_error = '', updated_at = $2
		WHERE id = $1 AND NOT sent
	`
	result, err := s.db.ExecContext(ctx, query, id, sentAt.UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark reminder task sent",
			slog.String("error", err.Error()),
			slog.String("reminder_task_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrReminderTaskNotFound)
}

// RecordFailure implements store.ReminderTaskStore.RecordFailure.
func (s *PostgresReminderTaskStore) RecordFailure(ctx context.Context, id uuid.UUID, lastError string, at time.Time) error {
	query := `
		UPDATE reminder_tasks
		SET attempts = attempts + 1, last_error = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, lastError, at.UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record reminder failure",
			slog.String("error", err.Error()),
			slog.String("reminder_task_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrReminderTaskNotFound)
}

// ListByTrackedItem implements store.ReminderTaskStore.ListByTrackedItem.
func (s *PostgresReminderTaskStore) ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.ReminderTask, error) {
	query := `
		SELECT ` + reminderTaskColumns + `
		FROM reminder_tasks
		WHERE tracked_item_id = $1
		ORDER BY scheduled_for, id
	`
	return s.query(ctx, "list reminder tasks", query, trackedItemID)
}

// CountByTrackedItem implements store.ReminderTaskStore.CountByTrackedItem.
func (s *PostgresReminderTaskStore) CountByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminder_tasks WHERE tracked_item_id = $1`, trackedItemID).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// WithTx implements store.ReminderTaskStore.WithTx.
func (s *PostgresReminderTaskStore) WithTx(tx *sql.Tx) store.ReminderTaskStore {
	return &PostgresReminderTaskStore{db: tx, logger: s.logger}
}

func (s *PostgresReminderTaskStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.ReminderTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to "+op,
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.ReminderTask
	for rows.Next() {
		var (
			t      domain.ReminderTask
			typ    string
			sentAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.TrackedItemID, &typ, &t.Stage, &t.ScheduledFor, &t.Sent,
			&sentAt, &t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, MapError(err)
		}
		t.Type = domain.ReminderType(typ)
		t.SentAt = fromNullTime(sentAt)
		t.ScheduledFor = t.ScheduledFor.UTC()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}
