package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/phrazzld/scry-reader/internal/clock"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/messaging"
	"github.com/phrazzld/scry-reader/internal/store"
)

// ErrScanInProgress is returned when Scan is called while a scan is running.
var ErrScanInProgress = errors.New("reminder scan already in progress")

// DefaultBatchSize is the number of due tasks loaded per page.
const DefaultBatchSize = 100

// Config controls a Dispatcher.
type Config struct {
	// BatchSize is the page size used to load due tasks. A scan keeps
	// loading pages until no due task is left.
	BatchSize int
	// MaxAttempts skips tasks that already failed this often. Zero retries
	// forever.
	MaxAttempts int
}

// TaskFailure is one task that could not be delivered during a scan.
type TaskFailure struct {
	TaskID uuid.UUID `json:"task_id"`
	Error  string    `json:"error"`
}

// ScanReport summarizes one scan.
type ScanReport struct {
	ScannedAt time.Time     `json:"scanned_at"`
	Due       int           `json:"due"`
	Sent      int           `json:"sent"`
	Failed    int           `json:"failed"`
	Failures  []TaskFailure `json:"failures,omitempty"`
}

// Dispatcher sends due reminders. Scans never overlap.
type Dispatcher struct {
	items     store.TrackedItemStore
	summaries store.SummaryStore
	reminders store.ReminderTaskStore
	renderer  *Renderer
	messenger messaging.Messenger
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	scanning atomic.Bool
}

// NewDispatcher creates a Dispatcher over the tracked item, summary and
// reminder stores in stores.
func NewDispatcher(
	stores store.Stores,
	renderer *Renderer,
	messenger messaging.Messenger,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) (*Dispatcher, error) {
	switch {
	case stores.TrackedItems == nil || stores.Summaries == nil || stores.Reminders == nil:
		return nil, errors.New("tracked item, summary and reminder stores are required")
	case renderer == nil:
		return nil, errors.New("renderer cannot be nil")
	case messenger == nil:
		return nil, errors.New("messenger cannot be nil")
	case clk == nil:
		return nil, errors.New("clock cannot be nil")
	case logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	return &Dispatcher{
		items:     stores.TrackedItems,
		summaries: stores.Summaries,
		reminders: stores.Reminders,
		renderer:  renderer,
		messenger: messenger,
		clock:     clk,
		cfg:       cfg,
		logger:    logger.With("component", "reminder_dispatcher"),
	}, nil
}

// Scan delivers every task due at the scan time, in store order. Due tasks
// are loaded in pages of BatchSize, each page starting past the last task
// of the previous one, so every due task is attempted once per scan no
// matter how many older tasks keep failing.
//
// A failing task is recorded and left pending; it never stops the scan.
// Delivery is at least once: when Send succeeds but MarkSent fails, the
// task stays pending and the learner gets the message again next scan.
// Only loading a page of due tasks or cancellation of ctx fails the call.
func (d *Dispatcher) Scan(ctx context.Context) (ScanReport, error) {
	if !d.scanning.CompareAndSwap(false, true) {
		return ScanReport{}, ErrScanInProgress
	}
	defer d.scanning.Store(false)

	now := d.clock.Now()
	report := ScanReport{ScannedAt: now}

	// Summaries are loaded once per tracked item per scan.
	summaries := cache.New(cache.NoExpiration, 0)

	query := store.DueQuery{Now: now, Limit: d.cfg.BatchSize, MaxAttempts: d.cfg.MaxAttempts}
	for {
		due, err := d.reminders.FindDue(ctx, query)
		if err != nil {
			return report, fmt.Errorf("failed to load due reminders: %w", err)
		}
		report.Due += len(due)

		for _, task := range due {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			if err := d.dispatch(ctx, task, summaries); err != nil {
				report.Failed++
				report.Failures = append(report.Failures, TaskFailure{TaskID: task.ID, Error: err.Error()})
				d.recordFailure(ctx, task, err)
				continue
			}
			report.Sent++
		}

		if len(due) < d.cfg.BatchSize {
			break
		}
		query.After = store.CursorAfter(due[len(due)-1])
	}

	if report.Due == 0 {
		d.logger.DebugContext(ctx, "no reminders due")
		return report, nil
	}
	d.logger.InfoContext(ctx, "reminder scan finished",
		slog.Int("due", report.Due),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed))
	return report, nil
}

// dispatch renders, sends and marks one task. Panics become errors.
func (d *Dispatcher) dispatch(ctx context.Context, task *domain.ReminderTask, summaries *cache.Cache) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reminder dispatch panicked: %v", r)
		}
	}()

	item, err := d.items.GetByID(ctx, task.TrackedItemID)
	if err != nil {
		return fmt.Errorf("failed to load tracked item: %w", err)
	}

	records, err := d.summariesFor(ctx, item.ID, summaries)
	if err != nil {
		return fmt.Errorf("failed to load summaries: %w", err)
	}

	text, err := d.renderer.Render(ctx, task, item, records)
	if err != nil {
		return fmt.Errorf("failed to render %s reminder: %w", task.Type, err)
	}

	if err := d.messenger.Send(ctx, item.LearnerID, text); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	if err := d.reminders.MarkSent(ctx, task.ID, d.clock.Now()); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	d.logger.InfoContext(ctx, "sent reminder",
		slog.String("task_id", task.ID.String()),
		slog.String("tracked_item_id", item.ID.String()),
		slog.String("type", string(task.Type)),
		slog.Int("stage", task.Stage))
	return nil
}

func (d *Dispatcher) summariesFor(
	ctx context.Context,
	trackedItemID uuid.UUID,
	c *cache.Cache,
) ([]*domain.SummaryRecord, error) {
	key := trackedItemID.String()
	if cached, ok := c.Get(key); ok {
		return cached.([]*domain.SummaryRecord), nil
	}
	records, err := d.summaries.ListByTrackedItem(ctx, trackedItemID)
	if err != nil {
		return nil, err
	}
	c.Set(key, records, cache.NoExpiration)
	return records, nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, task *domain.ReminderTask, cause error) {
	d.logger.WarnContext(ctx, "reminder dispatch failed",
		slog.String("task_id", task.ID.String()),
		slog.String("type", string(task.Type)),
		slog.Int("stage", task.Stage),
		slog.Int("attempt", task.Attempts+1),
		slog.String("error", cause.Error()))

	err := d.reminders.RecordFailure(context.WithoutCancel(ctx), task.ID, cause.Error(), d.clock.Now())
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to record reminder failure",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
	}
}
