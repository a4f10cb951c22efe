package srs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// Common errors
var (
	ErrInvalidIntervals = errors.New("invalid interval table")
	ErrNilTrackedItemID = errors.New("tracked item ID cannot be nil")
)

// Service computes reminder schedules. It holds no state beyond its table
// and performs no I/O.
type Service interface {
	// Plan returns one pending ReminderTask per (type, stage) in the table,
	// scheduled relative to now.
	Plan(trackedItemID uuid.UUID, now time.Time) ([]*domain.ReminderTask, error)

	// Intervals returns the table the service plans with.
	Intervals() IntervalTable
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	table IntervalTable
}

// NewServiceWithIntervals creates a service for a validated table.
func NewServiceWithIntervals(table IntervalTable) (Service, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{table: table}, nil
}

// Plan implements Service.
func (s *defaultService) Plan(trackedItemID uuid.UUID, now time.Time) ([]*domain.ReminderTask, error) {
	if trackedItemID == uuid.Nil {
		return nil, ErrNilTrackedItemID
	}
	return Plan(trackedItemID, s.table, now)
}

// Intervals implements Service.
func (s *defaultService) Intervals() IntervalTable {
	return s.table
}
