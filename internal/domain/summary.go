package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SummaryPlaceholder is stored when summary generation failed for a chapter.
const SummaryPlaceholder = "Error generating summary."

// SummaryRecord is the generated summary of a chapter, or a tracked item
// overview when ChapterID is nil.
type SummaryRecord struct {
	ID            uuid.UUID  `json:"id"`
	LearnerID     uuid.UUID  `json:"learner_id"`
	TrackedItemID *uuid.UUID `json:"tracked_item_id,omitempty"`
	ChapterID     *uuid.UUID `json:"chapter_id,omitempty"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Failed        bool       `json:"failed"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewSummaryRecord creates a summary for chapterID (may be nil) under owner.
func NewSummaryRecord(owner OwnerRef, chapterID *uuid.UUID, title, summary string) (*SummaryRecord, error) {
	s := &SummaryRecord{
		ID:            uuid.New(),
		LearnerID:     owner.LearnerID,
		TrackedItemID: owner.TrackedItemID,
		ChapterID:     chapterID,
		Title:         title,
		Summary:       summary,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFailedSummaryRecord creates the placeholder record kept when the
// text-generation collaborator could not summarize a chapter.
func NewFailedSummaryRecord(owner OwnerRef, chapterID *uuid.UUID, title string) (*SummaryRecord, error) {
	s, err := NewSummaryRecord(owner, chapterID, title, SummaryPlaceholder)
	if err != nil {
		return nil, err
	}
	s.Failed = true
	return s, nil
}

// Validate checks if the SummaryRecord has valid data.
func (s *SummaryRecord) Validate() error {
	if s.ID == uuid.Nil || s.LearnerID == uuid.Nil {
		return fmt.Errorf("%w: summary and learner IDs are required", ErrInvalidID)
	}
	if s.Summary == "" {
		return fmt.Errorf("%w: summary text cannot be empty", ErrEmptyContent)
	}
	return nil
}
