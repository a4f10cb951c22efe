package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var stageDescriptions = map[int]string{
	1: "first (day 1)",
	2: "second (day 3)",
	3: "third (day 7)",
	4: "fourth (day 30)",
}

var stageInstructions = map[int]string{
	1: "reinforces the most important points from the original content",
	2: "connects the ideas to real-world applications",
	3: "challenges deeper understanding through comparison and analysis",
	4: "gives a comprehensive review linking all major concepts",
}

// Limits caps how much source text each prompt embeds.
type Limits struct {
	// Sample caps the excerpt sent for chapter detection.
	Sample int
	// Content caps chapter text in summary, quiz and teaching prompts.
	Content int
	// Summary caps the summary embedded in retention reminders.
	Summary int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{Sample: 10000, Content: 8000, Summary: 1500}
}

// Prompts renders the embedded prompt templates.
type Prompts struct {
	tmpl   *template.Template
	limits Limits
}

// NewPrompts parses the embedded templates. Zero limits take defaults.
func NewPrompts(limits Limits) (*Prompts, error) {
	tmpl, err := template.ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %v", ErrInvalidConfig, err)
	}

	def := DefaultLimits()
	if limits.Sample <= 0 {
		limits.Sample = def.Sample
	}
	if limits.Content <= 0 {
		limits.Content = def.Content
	}
	if limits.Summary <= 0 {
		limits.Summary = def.Summary
	}
	return &Prompts{tmpl: tmpl, limits: limits}, nil
}

// ChapterDetection asks for chapter titles with verbatim start and end markers.
func (p *Prompts) ChapterDetection(text string) (string, error) {
	return p.render("chapter_detection.tmpl", map[string]any{
		"Sample": Truncate(text, p.limits.Sample),
	})
}

// ChapterSummary asks for a summary of one chapter. An empty title frames
// the text as a section.
func (p *Prompts) ChapterSummary(title, text string) (string, error) {
	kind := "section"
	if title != "" {
		kind = "chapter"
	}
	return p.render("chapter_summary.tmpl", map[string]any{
		"Kind":  kind,
		"Title": title,
		"Text":  Truncate(text, p.limits.Content),
	})
}

// Quiz asks for count question/answer pairs as a JSON array.
func (p *Prompts) Quiz(text string, count int) (string, error) {
	return p.render("quiz.tmpl", map[string]any{
		"Count": count,
		"Text":  Truncate(text, p.limits.Content),
	})
}

// Teaching asks for a single explain-it-to-someone challenge.
func (p *Prompts) Teaching(text string) (string, error) {
	return p.render("teaching.tmpl", map[string]any{
		"Text": Truncate(text, p.limits.Content),
	})
}

// RetentionReminder asks for a reminder whose focus depends on stage.
func (p *Prompts) RetentionReminder(summary string, stage int) (string, error) {
	desc, ok := stageDescriptions[stage]
	if !ok {
		desc = "spaced repetition"
	}
	instruction, ok := stageInstructions[stage]
	if !ok {
		instruction = "reinforces key concepts"
	}
	return p.render("retention_reminder.tmpl", map[string]any{
		"StageDescription": desc,
		"StageInstruction": instruction,
		"Summary":          Truncate(summary, p.limits.Summary),
	})
}

// Overview asks for a whole-book overview from title and author alone.
func (p *Prompts) Overview(title, author string) (string, error) {
	return p.render("overview.tmpl", map[string]any{
		"Title":  title,
		"Author": author,
	})
}

func (p *Prompts) render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Truncate returns at most n bytes of s without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
