package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSchedulerStarted is returned when a job is added after Start.
var ErrSchedulerStarted = errors.New("scheduler already started")

// Job is periodic work run by a Scheduler.
type Job func(ctx context.Context) error

type scheduledJob struct {
	name     string
	interval time.Duration
	run      Job
}

// Scheduler runs jobs at fixed intervals. A job never overlaps with itself:
// a tick that arrives while the previous run is still going is dropped.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []scheduledJob
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger.With("component", "scheduler")}
}

// Every registers job to run every interval once the scheduler starts.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSchedulerStarted
	}
	if interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.jobs = append(s.jobs, scheduledJob{name: name, interval: interval, run: job})
	return nil
}

// Start launches one goroutine per job. Jobs stop when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.logger.Info("scheduler started", "job_count", len(s.jobs))
}

// Stop cancels the jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j scheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	logger := s.logger.With("job", j.name)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("job stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := j.run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("scheduled job failed", "error", err)
				continue
			}
			logger.Debug("scheduled job finished", "duration", time.Since(start))
		}
	}
}
