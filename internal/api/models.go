package api

import (
	"time"

	"github.com/phrazzld/scry-reader/internal/domain"
)

// LinkTrackedItemRequest is the body of POST /api/tracked-items.
type LinkTrackedItemRequest struct {
	Title       string `json:"title"       validate:"required,max=500"`
	Author      string `json:"author"      validate:"max=300"`
	Description string `json:"description" validate:"max=5000"`
	// Overview asks for a generated overview of the whole document.
	Overview bool `json:"overview"`
}

// TrackedItemResponse is the wire form of a tracked item.
type TrackedItemResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ReminderResponse is the wire form of a reminder task.
type ReminderResponse struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Stage        int        `json:"stage"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	Sent         bool       `json:"sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Attempts     int        `json:"attempts,omitempty"`
}

// LinkTrackedItemResponse is returned by POST /api/tracked-items.
type LinkTrackedItemResponse struct {
	Item      TrackedItemResponse   `json:"item"`
	Reminders []ReminderResponse    `json:"reminders"`
	Overview  *domain.SummaryRecord `json:"overview,omitempty"`
}

// UploadAcceptedResponse is returned when a document has been queued.
type UploadAcceptedResponse struct {
	TaskID        string `json:"task_id"`
	TrackedItemID string `json:"tracked_item_id"`
	Status        string `json:"status"`
}

// ProgressResponse is one line of GET /api/progress.
type ProgressResponse struct {
	Item             TrackedItemResponse `json:"item"`
	Chapters         int                 `json:"chapters"`
	RemindersSent    int                 `json:"reminders_sent"`
	RemindersPending int                 `json:"reminders_pending"`
}

func trackedItemToResponse(item *domain.TrackedItem) TrackedItemResponse {
	return TrackedItemResponse{
		ID:          item.ID.String(),
		Title:       item.Title,
		Author:      item.Author,
		Description: item.Description,
		Status:      string(item.Status),
		Completed:   item.Completed,
		CompletedAt: item.CompletedAt,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func remindersToResponse(tasks []*domain.ReminderTask) []ReminderResponse {
	out := make([]ReminderResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ReminderResponse{
			ID:           t.ID.String(),
			Type:         string(t.Type),
			Stage:        t.Stage,
			ScheduledFor: t.ScheduledFor,
			Sent:         t.Sent,
			SentAt:       t.SentAt,
			Attempts:     t.Attempts,
		})
	}
	return out
}
