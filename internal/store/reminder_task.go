package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// DueCursor is the (scheduled_for, id) key of the last due task a caller
// has seen.
type DueCursor struct {
	ScheduledFor time.Time
	ID           uuid.UUID
}

// CursorAfter returns the cursor positioned at task.
func CursorAfter(task *domain.ReminderTask) *DueCursor {
	return &DueCursor{ScheduledFor: task.ScheduledFor, ID: task.ID}
}

// DueQuery selects a page of due reminder tasks.
type DueQuery struct {
	// Now is the cutoff; tasks scheduled after it are not due.
	Now time.Time
	// After, when set, skips tasks at or before the cursor.
	After *DueCursor
	// Limit is the page size. Zero means no limit.
	Limit int
	// MaxAttempts, when positive, skips tasks that already failed that
	// many times.
	MaxAttempts int
}

// ReminderTaskStore persists scheduled reminders.
type ReminderTaskStore interface {
	// CreateBatch saves a schedule. A task with the same tracked item, type
	// and stage as an existing one fails with ErrDuplicate.
	CreateBatch(ctx context.Context, tasks []*domain.ReminderTask) error

	// FindDue returns one page of unsent tasks scheduled at or before
	// q.Now, ordered by scheduled_for then id. See DueQuery.
	FindDue(ctx context.Context, q DueQuery) ([]*domain.ReminderTask, error)

	// MarkSent flags a task as delivered.
	// Returns ErrReminderTaskNotFound if no unsent task has that ID.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// RecordFailure increments attempts and stores the last error. The task
	// stays pending.
	RecordFailure(ctx context.Context, id uuid.UUID, lastError string, at time.Time) error

	// ListByTrackedItem returns an item's tasks ordered by scheduled_for.
	ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.ReminderTask, error)

	// CountByTrackedItem returns how many tasks an item has.
	CountByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) (int, error)

	// WithTx returns a ReminderTaskStore bound to tx.
	WithTx(tx *sql.Tx) ReminderTaskStore
}
