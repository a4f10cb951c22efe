package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner persists submitted tasks, queues them and executes them on a
// worker pool. Tasks interrupted by a crash or shutdown are rebuilt from
// their records on the next Start.
type TaskRunner struct {
	store  TaskStore
	queue  *TaskQueue
	pool   *WorkerPool
	config TaskRunnerConfig
	logger *slog.Logger

	mu         sync.RWMutex
	factories  map[string]Factory
	stopped    bool
	errHandler func(task Task, err error)

	ctx     context.Context
	cancel  context.CancelFunc
	monitor sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())
	r := &TaskRunner{
		store:     store,
		queue:     NewTaskQueue(config.QueueSize, logger),
		config:    config,
		logger:    logger,
		factories: make(map[string]Factory),
		ctx:       ctx,
		cancel:    cancel,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// RegisterFactory makes tasks of taskType recoverable from their records.
func (r *TaskRunner) RegisterFactory(taskType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = factory
}

// Submit persists the task and queues it for execution.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mu.RLock()
	stopped := r.stopped
	r.mu.RUnlock()
	if stopped {
		return ErrRunnerStopped
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	// A saved task that misses the queue stays pending and is picked up by
	// the next recovery.
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to queue task %s: %w", task.ID(), err)
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the
// stuck-task monitor.
func (r *TaskRunner) Start(ctx context.Context) error {
	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.monitor.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)
	return nil
}

// Stop cancels in-flight tasks, waits for the workers and closes the queue.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.pool.Stop()
	r.monitor.Wait()
	r.queue.Close()
	r.logger.Info("task runner stopped")
}

// Recover requeues pending tasks and resets tasks left in processing.
// Records whose type has no registered factory are marked failed.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// All processing tasks regardless of age: nothing else is running yet.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
	return nil
}

// requeue rebuilds a task from its record and puts it back on the queue.
func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	logger := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()
	if !ok {
		logger.Error("no factory registered for task type")
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, ErrUnknownTaskType.Error()); err != nil {
			logger.Error("failed to mark unrecoverable task as failed", "error", err)
		}
		return
	}

	task, err := factory(rec)
	if err != nil {
		logger.Error("failed to rebuild task", "error", err)
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); err != nil {
			logger.Error("failed to mark unrecoverable task as failed", "error", err)
		}
		return
	}

	if err := r.queue.Enqueue(task); err != nil {
		logger.Error("failed to requeue task", "error", err)
	}
}

// processTask is the worker pool handler. A panicking task is recorded as
// failed. A task cancelled by Stop goes back to pending for the next start.
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	storeCtx := context.WithoutCancel(ctx)

	if err := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")
	err := r.execute(ctx, task)

	switch {
	case err == nil:
		logger.Info("task completed successfully")
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		logger.Warn("task interrupted by shutdown")
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusPending, "Interrupted by shutdown"); updateErr != nil {
			logger.Error("failed to reset interrupted task", "error", updateErr)
		}
	default:
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		r.mu.RLock()
		handler := r.errHandler
		r.mu.RUnlock()
		handler(task, err)
	}
}

func (r *TaskRunner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

// stuckTaskMonitor periodically resets tasks that have been processing
// longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.monitor.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck tasks", "count", len(stuck))
	for _, rec := range stuck {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
}
