package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// SummaryStore persists chapter summaries and overview records.
type SummaryStore interface {
	// Create saves one summary record.
	Create(ctx context.Context, summary *domain.SummaryRecord) error

	// ListByTrackedItem returns an item's summaries, oldest first.
	ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.SummaryRecord, error)

	// WithTx returns a SummaryStore bound to tx.
	WithTx(tx *sql.Tx) SummaryStore
}
