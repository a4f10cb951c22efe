package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-reader/internal/events"
)

// Submitter accepts tasks for background execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler turns document upload events into ingestion
// tasks. The event ID becomes the task ID.
type TaskFactoryEventHandler struct {
	factory *DocumentIngestionTaskFactory
	runner  Submitter
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	factory *DocumentIngestionTaskFactory,
	runner Submitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent decodes the upload payload, builds the task and submits it.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.EventTypeDocumentUploaded {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var req DocumentIngestionRequest
	if err := event.UnmarshalPayload(&req); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.CreateTask(event.ID, req)
	if err != nil {
		h.logger.Error("failed to create task", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task", "error", err, "task_id", task.ID())
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("document ingestion task submitted",
		"task_id", task.ID(),
		"tracked_item_id", req.TrackedItemID)
	return nil
}
