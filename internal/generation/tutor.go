package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Tutor produces study content from chapter text through a TextGenerator.
type Tutor struct {
	gen     TextGenerator
	prompts *Prompts
	logger  *slog.Logger
}

// NewTutor creates a Tutor.
func NewTutor(gen TextGenerator, prompts *Prompts, logger *slog.Logger) (*Tutor, error) {
	if gen == nil {
		return nil, errors.New("text generator cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompts cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Tutor{gen: gen, prompts: prompts, logger: logger.With("component", "tutor")}, nil
}

// SummarizeChapter returns a summary of one chapter.
func (t *Tutor) SummarizeChapter(ctx context.Context, title, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyPrompt
	}
	prompt, err := t.prompts.ChapterSummary(title, content)
	if err != nil {
		return "", err
	}
	return t.generateText(ctx, "summary", prompt)
}

// GenerateQuiz returns up to count question/answer pairs. A response with
// no usable pairs is ErrInvalidResponse.
func (t *Tutor) GenerateQuiz(ctx context.Context, content string, count int) ([]QuizPair, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyPrompt
	}
	if count <= 0 {
		count = 3
	}
	prompt, err := t.prompts.Quiz(content, count)
	if err != nil {
		return nil, err
	}

	response, err := t.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	pairs, tier := ParseQuiz(response)
	t.logger.DebugContext(ctx, "parsed quiz response",
		"tier", tier,
		"pairs", len(pairs),
		"requested", count)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no quiz items in response", ErrInvalidResponse)
	}
	if len(pairs) > count {
		pairs = pairs[:count]
	}
	return pairs, nil
}

// TeachingPrompt returns a single teaching challenge for the content.
func (t *Tutor) TeachingPrompt(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyPrompt
	}
	prompt, err := t.prompts.Teaching(content)
	if err != nil {
		return "", err
	}
	return t.generateText(ctx, "teaching", prompt)
}

// RetentionReminder returns a reminder over summary shaped for stage.
func (t *Tutor) RetentionReminder(ctx context.Context, summary string, stage int) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", ErrEmptyPrompt
	}
	prompt, err := t.prompts.RetentionReminder(summary, stage)
	if err != nil {
		return "", err
	}
	return t.generateText(ctx, "retention_reminder", prompt)
}

// Overview returns a whole-book overview from title and author.
func (t *Tutor) Overview(ctx context.Context, title, author string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", ErrEmptyPrompt
	}
	prompt, err := t.prompts.Overview(title, author)
	if err != nil {
		return "", err
	}
	return t.generateText(ctx, "overview", prompt)
}

func (t *Tutor) generateText(ctx context.Context, kind, prompt string) (string, error) {
	response, err := t.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(response)
	if text == "" {
		t.logger.WarnContext(ctx, "empty model response", "kind", kind)
		return "", fmt.Errorf("%w: empty %s", ErrInvalidResponse, kind)
	}
	return text, nil
}
