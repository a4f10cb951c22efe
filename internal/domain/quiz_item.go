package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuizItem is a question/answer pair generated for a chapter.
type QuizItem struct {
	ID        uuid.UUID `json:"id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQuizItem creates a quiz item for chapterID.
func NewQuizItem(chapterID uuid.UUID, question, answer string) (*QuizItem, error) {
	q := &QuizItem{
		ID:        uuid.New(),
		ChapterID: chapterID,
		Question:  strings.TrimSpace(question),
		Answer:    strings.TrimSpace(answer),
		CreatedAt: time.Now().UTC(),
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks if the QuizItem has valid data.
func (q *QuizItem) Validate() error {
	if q.ID == uuid.Nil || q.ChapterID == uuid.Nil {
		return fmt.Errorf("%w: quiz item and chapter IDs are required", ErrInvalidID)
	}
	if q.Question == "" || q.Answer == "" {
		return fmt.Errorf("%w: question and answer are required", ErrEmptyContent)
	}
	return nil
}
