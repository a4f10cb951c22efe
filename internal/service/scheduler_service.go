package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/clock"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/domain/srs"
	"github.com/phrazzld/scry-reader/internal/store"
)

// SchedulerService persists the reminder tasks its planner computes. The
// planner owns the interval table; every schedule in the process uses it.
//
// Schedule does not deduplicate: calling it twice for the same tracked item
// plans a second schedule, which the store rejects with store.ErrDuplicate.
// Callers invoke it once per link event.
type SchedulerService struct {
	planner srs.Service
	clock   clock.Clock
	logger  *slog.Logger
}

// NewSchedulerService creates a SchedulerService.
func NewSchedulerService(
	planner srs.Service,
	clk clock.Clock,
	logger *slog.Logger,
) (*SchedulerService, error) {
	if planner == nil {
		return nil, errors.New("planner cannot be nil")
	}
	if clk == nil {
		return nil, errors.New("clock cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &SchedulerService{
		planner: planner,
		clock:   clk,
		logger:  logger.With("component", "scheduler_service"),
	}, nil
}

// Intervals returns the table schedules are planned with.
func (s *SchedulerService) Intervals() srs.IntervalTable {
	return s.planner.Intervals()
}

// Schedule plans one task per (type, stage) of the interval table relative
// to now and saves them to reminders, typically a store bound to the
// caller's unit of work.
func (s *SchedulerService) Schedule(
	ctx context.Context,
	reminders store.ReminderTaskStore,
	trackedItemID uuid.UUID,
) ([]*domain.ReminderTask, error) {
	tasks, err := s.planner.Plan(trackedItemID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := reminders.CreateBatch(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to save reminder schedule: %w", err)
	}

	s.logger.InfoContext(ctx, "scheduled reminders",
		slog.String("tracked_item_id", trackedItemID.String()),
		slog.Int("tasks", len(tasks)))
	return tasks, nil
}
