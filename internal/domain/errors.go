// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSpan is returned when a chapter's [start,end) range is malformed.
	ErrInvalidSpan = errors.New("invalid chapter span")

	// ErrInvalidTrackedItemStatus is returned when a tracked item status is not valid.
	ErrInvalidTrackedItemStatus = errors.New("invalid tracked item status")

	// ErrInvalidReminderType is returned for reminder types with no renderer.
	ErrInvalidReminderType = errors.New("invalid reminder type")

	// ErrInvalidStage is returned when a reminder stage is not 1-based.
	ErrInvalidStage = errors.New("invalid reminder stage")

	// ErrReminderAlreadySent is returned when a sent reminder is marked sent again.
	ErrReminderAlreadySent = errors.New("reminder already sent")
)
