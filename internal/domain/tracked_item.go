package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackedItemStatus represents the ingestion state of a tracked item's document.
type TrackedItemStatus string

// Possible tracked item status values
const (
	TrackedItemStatusPending             TrackedItemStatus = "pending"
	TrackedItemStatusProcessing          TrackedItemStatus = "processing"
	TrackedItemStatusCompleted           TrackedItemStatus = "completed"
	TrackedItemStatusCompletedWithErrors TrackedItemStatus = "completed_with_errors"
	TrackedItemStatusFailed              TrackedItemStatus = "failed"
)

// TrackedItem is the long-lived association between a learner and a document
// they are studying. It owns its reminder tasks by ID.
type TrackedItem struct {
	ID          uuid.UUID         `json:"id"`
	LearnerID   uuid.UUID         `json:"learner_id"`
	Title       string            `json:"title"`
	Author      string            `json:"author,omitempty"`
	Description string            `json:"description,omitempty"`
	Status      TrackedItemStatus `json:"status"`
	Completed   bool              `json:"completed"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewTrackedItem creates a pending tracked item for learnerID.
func NewTrackedItem(learnerID uuid.UUID, title, author, description string) (*TrackedItem, error) {
	now := time.Now().UTC()
	item := &TrackedItem{
		ID:          uuid.New(),
		LearnerID:   learnerID,
		Title:       strings.TrimSpace(title),
		Author:      strings.TrimSpace(author),
		Description: strings.TrimSpace(description),
		Status:      TrackedItemStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks if the TrackedItem has valid data.
func (t *TrackedItem) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: tracked item ID cannot be empty", ErrInvalidID)
	}
	if t.LearnerID == uuid.Nil {
		return fmt.Errorf("%w: learner ID cannot be empty", ErrInvalidID)
	}
	if t.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrEmptyContent)
	}
	if !isValidTrackedItemStatus(t.Status) {
		return ErrInvalidTrackedItemStatus
	}
	if t.Completed && t.CompletedAt == nil {
		return fmt.Errorf("%w: completed item needs completed_at", ErrValidation)
	}
	return nil
}

// UpdateStatus updates the ingestion status and the UpdatedAt timestamp.
func (t *TrackedItem) UpdateStatus(status TrackedItemStatus) error {
	if !isValidTrackedItemStatus(status) {
		return ErrInvalidTrackedItemStatus
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted records that the learner finished the item. Completing twice
// keeps the first completion time.
func (t *TrackedItem) MarkCompleted(now time.Time) {
	if t.Completed {
		return
	}
	at := now.UTC()
	t.Completed = true
	t.CompletedAt = &at
	t.UpdatedAt = at
}

// IsProcessing reports whether a document is currently being ingested.
func (t *TrackedItem) IsProcessing() bool {
	return t.Status == TrackedItemStatusProcessing
}

func isValidTrackedItemStatus(status TrackedItemStatus) bool {
	switch status {
	case TrackedItemStatusPending, TrackedItemStatusProcessing, TrackedItemStatusCompleted,
		TrackedItemStatusCompletedWithErrors, TrackedItemStatusFailed:
		return true
	default:
		return false
	}
}
