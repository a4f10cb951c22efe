package service

import (
	"errors"
	"fmt"
)

// Service sentinel errors. The API layer maps them to status codes.
var (
	// ErrIngestionInProgress indicates a document for the tracked item is
	// still being processed. API layer should map this to HTTP 409 Conflict.
	ErrIngestionInProgress = errors.New("document ingestion already in progress")

	// ErrInvalidOwner indicates an ingestion run without a learner.
	ErrInvalidOwner = errors.New("ingestion owner must name a learner")

	// ErrNoBlobStore is returned when a stored document is ingested but no
	// blob store was configured.
	ErrNoBlobStore = errors.New("no blob store configured")
)

// Ingestion stages reported by IngestionError.
const (
	StageValidation = "validation"
	StageExtraction = "extraction"
	StageChapters   = "chapters"
	StageStatus     = "status"
)

// IngestionError is a fatal ingestion failure together with the stage it
// happened in. Chapter-level failures are never reported this way.
type IngestionError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ServiceError wraps unexpected errors from a service operation with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "link", "complete")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err with operation context. Nil stays nil.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
