package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chapter is a persisted, titled slice [Start,End) of an ingested document.
// Offsets are byte offsets into the extracted text.
type Chapter struct {
	ID            uuid.UUID  `json:"id"`
	LearnerID     uuid.UUID  `json:"learner_id"`
	TrackedItemID *uuid.UUID `json:"tracked_item_id,omitempty"`
	Index         int        `json:"index"`
	Title         string     `json:"title"`
	Start         int        `json:"start"`
	End           int        `json:"end"`
	Content       string     `json:"content"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewChapter creates a chapter owned by owner.
func NewChapter(owner OwnerRef, index int, title string, start, end int, content string) (*Chapter, error) {
	c := &Chapter{
		ID:            uuid.New(),
		LearnerID:     owner.LearnerID,
		TrackedItemID: owner.TrackedItemID,
		Index:         index,
		Title:         strings.TrimSpace(title),
		Start:         start,
		End:           end,
		Content:       content,
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Chapter has valid data.
func (c *Chapter) Validate() error {
	if c.ID == uuid.Nil || c.LearnerID == uuid.Nil {
		return fmt.Errorf("%w: chapter and learner IDs are required", ErrInvalidID)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: chapter title cannot be empty", ErrEmptyContent)
	}
	if c.Index < 0 || c.Start < 0 || c.End <= c.Start {
		return fmt.Errorf("%w: [%d,%d) at index %d", ErrInvalidSpan, c.Start, c.End, c.Index)
	}
	if len(c.Content) != c.End-c.Start {
		return fmt.Errorf("%w: content length %d does not match span", ErrInvalidSpan, len(c.Content))
	}
	return nil
}
