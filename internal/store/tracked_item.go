package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// TrackedItemStore persists the documents a learner follows.
type TrackedItemStore interface {
	// Create saves a new tracked item. The item must pass domain validation.
	Create(ctx context.Context, item *domain.TrackedItem) error

	// GetByID retrieves a tracked item.
	// Returns ErrTrackedItemNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrackedItem, error)

	// ListByLearner returns a learner's items, newest first.
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.TrackedItem, error)

	// Update writes status, completion and updated_at back.
	// Returns ErrTrackedItemNotFound if the item does not exist.
	Update(ctx context.Context, item *domain.TrackedItem) error

	// ClaimForIngestion moves the learner's item to processing in a single
	// conditional write, so of two concurrent claims at most one succeeds.
	// Returns ErrTrackedItemNotFound if the learner has no such item and
	// ErrTrackedItemBusy if it is already processing.
	ClaimForIngestion(ctx context.Context, learnerID, id uuid.UUID, at time.Time) (*domain.TrackedItem, error)

	// WithTx returns a TrackedItemStore bound to tx.
	WithTx(tx *sql.Tx) TrackedItemStore
}
