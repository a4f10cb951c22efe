package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidIngestionRequest is returned for requests missing identifiers
// or the stored document reference.
var ErrInvalidIngestionRequest = errors.New("invalid document ingestion request")

// DocumentIngestionRequest identifies a stored upload and the tracked item
// whose chapters it should produce.
type DocumentIngestionRequest struct {
	TrackedItemID uuid.UUID `json:"tracked_item_id"`
	LearnerID     uuid.UUID `json:"learner_id"`
	BlobKey       string    `json:"blob_key"`
	Filename      string    `json:"filename"`
}

// Validate checks that every field is present.
func (r DocumentIngestionRequest) Validate() error {
	switch {
	case r.TrackedItemID == uuid.Nil:
		return fmt.Errorf("%w: tracked item ID is required", ErrInvalidIngestionRequest)
	case r.LearnerID == uuid.Nil:
		return fmt.Errorf("%w: learner ID is required", ErrInvalidIngestionRequest)
	case strings.TrimSpace(r.BlobKey) == "":
		return fmt.Errorf("%w: blob key is required", ErrInvalidIngestionRequest)
	case strings.TrimSpace(r.Filename) == "":
		return fmt.Errorf("%w: filename is required", ErrInvalidIngestionRequest)
	}
	return nil
}

// DocumentIngester runs a stored document through the ingestion pipeline.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, req DocumentIngestionRequest) error
}

// DocumentIngestionTask ingests one uploaded document.
type DocumentIngestionTask struct {
	id       uuid.UUID
	req      DocumentIngestionRequest
	payload  []byte
	status   TaskStatus
	ingester DocumentIngester
	logger   *slog.Logger
}

// ID returns the task's unique identifier
func (t *DocumentIngestionTask) ID() uuid.UUID { return t.id }

// Type returns TaskTypeDocumentIngestion.
func (t *DocumentIngestionTask) Type() string { return TaskTypeDocumentIngestion }

// Payload returns the JSON-encoded request.
func (t *DocumentIngestionTask) Payload() []byte { return t.payload }

// Status returns the current task status
func (t *DocumentIngestionTask) Status() TaskStatus { return t.status }

// Request returns the ingestion request the task carries.
func (t *DocumentIngestionTask) Request() DocumentIngestionRequest { return t.req }

// Execute hands the request to the ingester.
func (t *DocumentIngestionTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("ingesting document",
		"tracked_item_id", t.req.TrackedItemID,
		"filename", t.req.Filename)

	if err := t.ingester.IngestDocument(ctx, t.req); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("ingest %s: %w", t.req.Filename, err)
	}

	t.status = TaskStatusCompleted
	return nil
}

// DocumentIngestionTaskFactory builds ingestion tasks for new uploads and
// for records recovered after a restart.
type DocumentIngestionTaskFactory struct {
	ingester DocumentIngester
	logger   *slog.Logger
}

// NewDocumentIngestionTaskFactory creates a factory bound to ingester.
func NewDocumentIngestionTaskFactory(ingester DocumentIngester, logger *slog.Logger) *DocumentIngestionTaskFactory {
	return &DocumentIngestionTaskFactory{
		ingester: ingester,
		logger:   logger.With("component", "document_ingestion_task"),
	}
}

// CreateTask builds a pending task with the given ID.
func (f *DocumentIngestionTaskFactory) CreateTask(id uuid.UUID, req DocumentIngestionRequest) (*DocumentIngestionTask, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ingestion request: %w", err)
	}

	return &DocumentIngestionTask{
		id:       id,
		req:      req,
		payload:  payload,
		status:   TaskStatusPending,
		ingester: f.ingester,
		logger:   f.logger.With("task_id", id),
	}, nil
}

// FromRecord rebuilds a task from its persisted record. It has the Factory
// signature so it can be registered with a TaskRunner.
func (f *DocumentIngestionTaskFactory) FromRecord(rec Record) (Task, error) {
	if rec.Type != TaskTypeDocumentIngestion {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, rec.Type)
	}

	var req DocumentIngestionRequest
	if err := json.Unmarshal(rec.Payload, &req); err != nil {
		return nil, fmt.Errorf("failed to decode ingestion request: %w", err)
	}
	return f.CreateTask(rec.ID, req)
}
