package chapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/phrazzld/scry-reader/internal/segment"
)

// ErrEmptyText is returned when there is nothing to resolve.
var ErrEmptyText = errors.New("text to resolve is empty")

// DefaultWindowSize is both the single-request threshold and the window
// size for larger documents.
const DefaultWindowSize = 30000

// Config controls how the resolver splits work across requests.
type Config struct {
	// WindowSize is the largest text sent through one detection request.
	WindowSize int
	// Semantic cuts windows at detected headers when the text has enough of them.
	Semantic bool
}

// WindowReport records how one detection window was resolved.
type WindowReport struct {
	Span         segment.Span
	Tier         generation.ParseTier
	Candidates   int
	Located      int
	UsedFallback bool
	Err          error
}

// Result is the resolved chapter list. UsedFallback is set when at least
// one window produced no usable candidate.
type Result struct {
	Chapters     []Chapter
	UsedFallback bool
	Windows      []WindowReport
}

// Resolver turns document text into chapters using a TextGenerator.
type Resolver struct {
	gen     generation.TextGenerator
	prompts *generation.Prompts
	cfg     Config
	logger  *slog.Logger
}

// NewResolver creates a Resolver. A zero WindowSize takes the default.
func NewResolver(gen generation.TextGenerator, prompts *generation.Prompts, cfg Config, logger *slog.Logger) (*Resolver, error) {
	if gen == nil {
		return nil, errors.New("text generator cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompts cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	return &Resolver{
		gen:     gen,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger.With("component", "chapter_resolver"),
	}, nil
}

// Resolve returns the chapters of text. Texts up to the window size go
// through a single request; larger texts are split into windows resolved
// in order. The result is sorted, non-overlapping and covers the text.
//
// Generator failures for a window do not fail the call; the window falls
// back to a synthetic chapter. Only cancellation of ctx aborts.
func (r *Resolver) Resolve(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	windows := r.windows(text)
	single := len(windows) == 1
	fallbackTitle := TitleContentSection
	if single {
		fallbackTitle = TitleBookContent
	}

	var (
		located []Chapter
		res     Result
	)
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		chapters, report, err := r.resolveWindow(ctx, text, w)
		if err != nil {
			return Result{}, err
		}
		if len(chapters) == 0 {
			report.UsedFallback = true
			res.UsedFallback = true
			chapters = []Chapter{{Title: fallbackTitle, Start: w.Start, End: w.End, Synthetic: true}}
		}

		r.logger.DebugContext(ctx, "resolved detection window",
			slog.Int("window", i),
			slog.Int("start", w.Start),
			slog.Int("end", w.End),
			slog.String("tier", string(report.Tier)),
			slog.Int("candidates", report.Candidates),
			slog.Int("located", report.Located),
			slog.Bool("fallback", report.UsedFallback))

		res.Windows = append(res.Windows, report)
		located = append(located, chapters...)
	}

	res.Chapters = refine(text, located)
	r.logger.InfoContext(ctx, "resolved chapters",
		slog.Int("windows", len(windows)),
		slog.Int("chapters", len(res.Chapters)),
		slog.Bool("fallback", res.UsedFallback))
	return res, nil
}

func (r *Resolver) windows(text string) []segment.Span {
	if len(text) <= r.cfg.WindowSize {
		return []segment.Span{{Start: 0, End: len(text)}}
	}
	if r.cfg.Semantic {
		return segment.SemanticSpans(text, r.cfg.WindowSize)
	}
	return segment.Spans(text, r.cfg.WindowSize)
}

// resolveWindow asks for chapters in one window and locates them in the
// full text at or after the window start. The only error returned is ctx's.
func (r *Resolver) resolveWindow(ctx context.Context, text string, w segment.Span) ([]Chapter, WindowReport, error) {
	report := WindowReport{Span: w, Tier: generation.TierFallback}

	prompt, err := r.prompts.ChapterDetection(text[w.Start:w.End])
	if err != nil {
		report.Err = err
		return nil, report, nil
	}

	response, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, report, ctxErr
		}
		r.logger.WarnContext(ctx, "chapter detection request failed",
			slog.Int("window_start", w.Start),
			slog.String("error", err.Error()))
		report.Err = fmt.Errorf("chapter detection for window at %d: %w", w.Start, err)
		return nil, report, nil
	}

	parsed := Parse(response)
	report.Tier = parsed.Tier
	report.Candidates = len(parsed.Candidates)

	var chapters []Chapter
	for _, c := range parsed.Candidates {
		ch, ok := locate(text, w.Start, c)
		if !ok {
			r.logger.DebugContext(ctx, "dropping chapter with unknown start marker",
				slog.String("title", c.Title))
			continue
		}
		chapters = append(chapters, ch)
	}
	report.Located = len(chapters)
	return chapters, report, nil
}
