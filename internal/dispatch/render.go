package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/generation"
)

// ErrUnknownReminderType is returned for reminder types with no renderer.
var ErrUnknownReminderType = errors.New("unknown reminder type")

// QuizQuestions is how many questions a quiz reminder asks.
const QuizQuestions = 2

// Renderer turns a reminder task into learner-facing text.
type Renderer struct {
	tutor *generation.Tutor
}

// NewRenderer creates a Renderer.
func NewRenderer(tutor *generation.Tutor) (*Renderer, error) {
	if tutor == nil {
		return nil, errors.New("tutor cannot be nil")
	}
	return &Renderer{tutor: tutor}, nil
}

// Render builds the message for task. summaries are the tracked item's
// summary records, oldest first; the most recent usable one is the source.
// Without one, a fixed "no summary yet" message is returned and the
// generator is not called.
func (r *Renderer) Render(
	ctx context.Context,
	task *domain.ReminderTask,
	item *domain.TrackedItem,
	summaries []*domain.SummaryRecord,
) (string, error) {
	if !task.Type.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownReminderType, task.Type)
	}

	source := latestSummary(summaries)
	if source == nil {
		return NoSummaryMessage(item.Title), nil
	}

	switch task.Type {
	case domain.ReminderTypeSummary:
		text, err := r.tutor.RetentionReminder(ctx, source.Summary, task.Stage)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("📚 Reminder for '%s'\n\n%s", item.Title, text), nil

	case domain.ReminderTypeQuiz:
		pairs, err := r.tutor.GenerateQuiz(ctx, source.Summary, QuizQuestions)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "📝 Quiz Time! Let's test your knowledge of '%s':\n\n", item.Title)
		for i, p := range pairs {
			fmt.Fprintf(&b, "%d. %s\n\n", i+1, p.Question)
		}
		b.WriteString("Answer from memory before you look back at your notes.")
		return b.String(), nil

	case domain.ReminderTypeTeaching:
		text, err := r.tutor.TeachingPrompt(ctx, source.Summary)
		if err != nil {
			return "", err
		}
		return "👨‍🏫 Teaching Challenge!\n\n" +
			"The best way to reinforce your learning is to explain concepts to others.\n\n" +
			text, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReminderType, task.Type)
}

// NoSummaryMessage is sent when a tracked item has nothing to recall yet.
func NoSummaryMessage(title string) string {
	return fmt.Sprintf("I don't have any summary information for '%s' yet. "+
		"Upload the document to get reminders built from it.", title)
}

func latestSummary(summaries []*domain.SummaryRecord) *domain.SummaryRecord {
	for i := len(summaries) - 1; i >= 0; i-- {
		if s := summaries[i]; s != nil && !s.Failed && strings.TrimSpace(s.Summary) != "" {
			return s
		}
	}
	return nil
}
