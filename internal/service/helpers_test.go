package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/chapters"
	"github.com/phrazzld/scry-reader/internal/clock"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/domain/srs"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/phrazzld/scry-reader/internal/mocks"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/stretchr/testify/require"
)

const quizResponse = `[{"question":"What is it about?","answer":"Reading."}]`

var linkTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleText is long enough to pass the registry's minimum length.
func sampleText() string {
	return strings.Repeat("The first half talks about reading. ", 4) +
		strings.Repeat("The second half talks about memory. ", 4)
}

// halfResolver splits the text into two chapters at the midpoint.
type halfResolver struct {
	fallback bool
	err      error
}

func (r halfResolver) Resolve(_ context.Context, text string) (chapters.Result, error) {
	if r.err != nil {
		return chapters.Result{}, r.err
	}
	mid := len(text) / 2
	return chapters.Result{
		Chapters: []chapters.Chapter{
			{Title: "One", Start: 0, End: mid, Content: text[:mid]},
			{Title: "Two", Start: mid, End: len(text), Content: text[mid:]},
		},
		UsedFallback: r.fallback,
	}, nil
}

// studyGenerator answers quiz prompts with quizResponse and summary prompts
// with a fixed summary. Summaries of chapters named in failTitles fail.
func studyGenerator(failTitles ...string) *mocks.MockTextGenerator {
	return &mocks.MockTextGenerator{
		GenerateFn: func(ctx context.Context, prompt string) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			switch {
			case strings.Contains(prompt, "quiz questions"):
				return quizResponse, nil
			case strings.Contains(prompt, "Summarize"):
				for _, title := range failTitles {
					if strings.Contains(prompt, `"`+title+`"`) {
						return "", generation.ErrGenerationFailed
					}
				}
				return "A short summary.", nil
			case strings.Contains(prompt, "overview"):
				return "A generated overview.", nil
			default:
				return "Some generated text.", nil
			}
		},
	}
}

func newTutor(t *testing.T, gen generation.TextGenerator) *generation.Tutor {
	t.Helper()
	prompts, err := generation.NewPrompts(generation.DefaultLimits())
	require.NoError(t, err)
	tutor, err := generation.NewTutor(gen, prompts, discardLogger())
	require.NoError(t, err)
	return tutor
}

type fixture struct {
	stores    *mocks.MockStores
	uow       *mocks.MockUnitOfWork
	clock     *clock.Fixed
	scheduler *SchedulerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := mocks.NewMockStores()
	clk := clock.NewFixed(linkTime)
	planner, err := srs.NewServiceWithIntervals(srs.NewDefaultIntervals())
	require.NoError(t, err)
	scheduler, err := NewSchedulerService(planner, clk, discardLogger())
	require.NoError(t, err)
	return &fixture{
		stores:    stores,
		uow:       mocks.NewMockUnitOfWork(stores.Stores()),
		clock:     clk,
		scheduler: scheduler,
	}
}

func (f *fixture) ingestion(
	t *testing.T,
	gen generation.TextGenerator,
	resolver ChapterResolver,
	blobs blob.Store,
) *IngestionService {
	t.Helper()
	svc, err := NewIngestionService(
		extract.NewRegistry(20),
		resolver,
		newTutor(t, gen),
		f.uow,
		f.scheduler,
		blobs,
		IngestionConfig{QuizQuestions: 3},
		discardLogger(),
	)
	require.NoError(t, err)
	return svc
}

func (f *fixture) trackedItems(t *testing.T, gen generation.TextGenerator) *TrackedItemService {
	t.Helper()
	var tutor *generation.Tutor
	if gen != nil {
		tutor = newTutor(t, gen)
	}
	svc, err := NewTrackedItemService(
		f.stores.Stores(), f.uow, f.scheduler, tutor, f.clock, discardLogger())
	require.NoError(t, err)
	return svc
}

// addItem stores a pending tracked item without a schedule.
func (f *fixture) addItem(t *testing.T, learnerID uuid.UUID) *domain.TrackedItem {
	t.Helper()
	item, err := domain.NewTrackedItem(learnerID, "Deep Work", "Cal Newport", "Focus.")
	require.NoError(t, err)
	require.NoError(t, f.stores.TrackedItems.Create(context.Background(), item))
	return item
}

func (f *fixture) status(t *testing.T, id uuid.UUID) domain.TrackedItemStatus {
	t.Helper()
	item, err := f.stores.TrackedItems.GetByID(context.Background(), id)
	require.NoError(t, err)
	return item.Status
}
