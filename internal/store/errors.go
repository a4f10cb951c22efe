package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity, e.g. a second reminder for the same item, type and stage.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored or violates a database constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a unit of work cannot commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTrackedItemNotFound indicates that the tracked item does not exist
	// or belongs to another learner.
	ErrTrackedItemNotFound = fmt.Errorf("%w: tracked item", ErrNotFound)

	// ErrTrackedItemBusy indicates that the tracked item is already
	// processing a document.
	ErrTrackedItemBusy = errors.New("tracked item is already processing")

	// ErrChapterNotFound indicates that the chapter does not exist.
	ErrChapterNotFound = fmt.Errorf("%w: chapter", ErrNotFound)

	// ErrReminderTaskNotFound indicates that the reminder task does not exist.
	ErrReminderTaskNotFound = fmt.Errorf("%w: reminder task", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is a "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "chapter", "reminder_task")
	Operation string // The operation that failed (e.g., "create", "mark_sent")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
