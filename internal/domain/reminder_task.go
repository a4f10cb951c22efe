package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReminderType selects what a reminder re-surfaces.
type ReminderType string

// Known reminder types.
const (
	ReminderTypeSummary  ReminderType = "summary"
	ReminderTypeQuiz     ReminderType = "quiz"
	ReminderTypeTeaching ReminderType = "teaching"
)

// IsValid reports whether t is a known reminder type.
func (t ReminderType) IsValid() bool {
	switch t {
	case ReminderTypeSummary, ReminderTypeQuiz, ReminderTypeTeaching:
		return true
	default:
		return false
	}
}

// ReminderStatus is derived from the Sent flag.
type ReminderStatus string

// Reminder task states. The only transition is pending to sent.
const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusSent    ReminderStatus = "sent"
)

// ReminderTask is one scheduled delivery of study content for a tracked item.
// Stage is the 1-based position within its type's interval table.
type ReminderTask struct {
	ID            uuid.UUID    `json:"id"`
	TrackedItemID uuid.UUID    `json:"tracked_item_id"`
	Type          ReminderType `json:"type"`
	Stage         int          `json:"stage"`
	ScheduledFor  time.Time    `json:"scheduled_for"`
	Sent          bool         `json:"sent"`
	SentAt        *time.Time   `json:"sent_at,omitempty"`
	Attempts      int          `json:"attempts"`
	LastError     string       `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewReminderTask creates a pending reminder.
func NewReminderTask(
	trackedItemID uuid.UUID,
	reminderType ReminderType,
	stage int,
	scheduledFor time.Time,
) (*ReminderTask, error) {
	now := time.Now().UTC()
	r := &ReminderTask{
		ID:            uuid.New(),
		TrackedItemID: trackedItemID,
		Type:          reminderType,
		Stage:         stage,
		ScheduledFor:  scheduledFor.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks if the ReminderTask has valid data.
func (r *ReminderTask) Validate() error {
	if r.ID == uuid.Nil || r.TrackedItemID == uuid.Nil {
		return fmt.Errorf("%w: reminder and tracked item IDs are required", ErrInvalidID)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderType, r.Type)
	}
	if r.Stage < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidStage, r.Stage)
	}
	if r.ScheduledFor.IsZero() {
		return fmt.Errorf("%w: scheduled_for is required", ErrValidation)
	}
	return nil
}

// Status returns the task's state.
func (r *ReminderTask) Status() ReminderStatus {
	if r.Sent {
		return ReminderStatusSent
	}
	return ReminderStatusPending
}

// IsDue reports whether the task is unsent and scheduled at or before now.
func (r *ReminderTask) IsDue(now time.Time) bool {
	return !r.Sent && !r.ScheduledFor.After(now)
}

// MarkSent performs the pending to sent transition.
func (r *ReminderTask) MarkSent(now time.Time) error {
	if r.Sent {
		return ErrReminderAlreadySent
	}
	at := now.UTC()
	r.Sent = true
	r.SentAt = &at
	r.LastError = ""
	r.UpdatedAt = at
	return nil
}

// RecordFailure notes a failed dispatch attempt. The task stays pending.
func (r *ReminderTask) RecordFailure(cause error, now time.Time) {
	r.Attempts++
	if cause != nil {
		r.LastError = cause.Error()
	}
	r.UpdatedAt = now.UTC()
}
