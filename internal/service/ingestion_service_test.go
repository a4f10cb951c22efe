package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/domain/srs"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/phrazzld/scry-reader/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessTextIsolatesChapterFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	learnerID := uuid.New()
	item := f.addItem(t, learnerID)
	svc := f.ingestion(t, studyGenerator("Two"), halfResolver{}, nil)

	result, err := svc.ProcessText(context.Background(), sampleText(), domain.NewOwnerRef(learnerID, item.ID))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalChapters)
	assert.Equal(t, 2, result.ProcessedChapters)
	assert.Equal(t, 1, result.FailedChapters)
	assert.True(t, result.HadFailures)
	require.Len(t, result.Chapters, 2)
	assert.False(t, result.Chapters[0].SummaryFailed)
	assert.True(t, result.Chapters[1].SummaryFailed)

	summaries := f.stores.Summaries.All()
	require.Len(t, summaries, 2)
	assert.Equal(t, "A short summary.", summaries[0].Summary)
	assert.True(t, summaries[1].Failed)
	assert.Equal(t, domain.SummaryPlaceholder, summaries[1].Summary)

	assert.Len(t, f.stores.Quizzes.All(), 2)
	assert.Equal(t, domain.TrackedItemStatusCompletedWithErrors, f.status(t, item.ID))
}

func TestProcessTextSchedulesRemindersOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	learnerID := uuid.New()
	item := f.addItem(t, learnerID)
	svc := f.ingestion(t, studyGenerator(), halfResolver{}, nil)
	owner := domain.NewOwnerRef(learnerID, item.ID)
	ctx := context.Background()

	first, err := svc.ProcessText(ctx, sampleText(), owner)
	require.NoError(t, err)
	assert.Equal(t, srs.NewDefaultIntervals().TotalStages(), first.RemindersScheduled)
	assert.False(t, first.HadFailures)
	assert.Equal(t, domain.TrackedItemStatusCompleted, f.status(t, item.ID))

	second, err := svc.ProcessText(ctx, sampleText(), owner)
	require.NoError(t, err)
	assert.Zero(t, second.RemindersScheduled)
	assert.False(t, second.HadFailures)

	count, err := f.stores.Reminders.CountByTrackedItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, srs.NewDefaultIntervals().TotalStages(), count)
}

func TestProcessTextWithoutTrackedItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.ingestion(t, studyGenerator(), halfResolver{fallback: true}, nil)

	result, err := svc.ProcessText(context.Background(), sampleText(), domain.OwnerRef{LearnerID: uuid.New()})
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.Zero(t, result.RemindersScheduled)
	for _, ch := range f.stores.Chapters.All() {
		assert.Nil(t, ch.TrackedItemID)
	}
	assert.Len(t, f.stores.Chapters.All(), 2)
}

func TestProcessTextFatalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		resolver  halfResolver
		wantStage string
		wantErr   error
	}{
		{
			name:      "near-empty text",
			text:      "   too short   ",
			wantStage: StageExtraction,
			wantErr:   extract.ErrTextTooShort,
		},
		{
			name:      "resolver failure",
			text:      sampleText(),
			resolver:  halfResolver{err: context.DeadlineExceeded},
			wantStage: StageChapters,
			wantErr:   context.DeadlineExceeded,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			learnerID := uuid.New()
			item := f.addItem(t, learnerID)
			svc := f.ingestion(t, studyGenerator(), tc.resolver, nil)

			result, err := svc.ProcessText(context.Background(), tc.text, domain.NewOwnerRef(learnerID, item.ID))
			require.Error(t, err)

			var ingestionErr *IngestionError
			require.ErrorAs(t, err, &ingestionErr)
			assert.Equal(t, tc.wantStage, ingestionErr.Stage)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.False(t, result.Success)
			assert.Empty(t, f.stores.Chapters.All())
			assert.Equal(t, domain.TrackedItemStatusFailed, f.status(t, item.ID))
		})
	}
}

func TestProcessTextRejectsMissingLearner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.ingestion(t, studyGenerator(), halfResolver{}, nil)

	_, err := svc.ProcessText(context.Background(), sampleText(), domain.OwnerRef{})
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestProcessTextStoreFailureIsIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	learnerID := uuid.New()
	item := f.addItem(t, learnerID)
	f.stores.Chapters.CreateFn = func(_ context.Context, ch *domain.Chapter) error {
		if ch.Index == 0 {
			return errors.New("disk full")
		}
		return nil
	}
	svc := f.ingestion(t, studyGenerator(), halfResolver{}, nil)

	result, err := svc.ProcessText(context.Background(), sampleText(), domain.NewOwnerRef(learnerID, item.ID))
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedChapters)
	assert.Equal(t, 1, result.FailedChapters)
	assert.False(t, result.Chapters[0].Persisted)
	assert.Contains(t, result.Chapters[0].Error, "disk full")
	assert.True(t, result.Chapters[1].Persisted)

	stored := f.stores.Chapters.All()
	require.Len(t, stored, 1)
	assert.Equal(t, "Two", stored[0].Title)
}

func TestProcessTextQuizFailureKeepsChapter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	gen := studyGenerator()
	base := gen.GenerateFn
	gen.GenerateFn = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "quiz questions") {
			return "no questions here", nil
		}
		return base(ctx, prompt)
	}
	svc := f.ingestion(t, gen, halfResolver{}, nil)

	result, err := svc.ProcessText(context.Background(), sampleText(), domain.OwnerRef{LearnerID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, 2, result.ProcessedChapters)
	assert.Zero(t, result.FailedChapters)
	assert.Empty(t, f.stores.Quizzes.All())
}

func TestProcessTextCancellationKeepsCommittedChapters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	learnerID := uuid.New()
	item := f.addItem(t, learnerID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := studyGenerator()
	base := gen.GenerateFn
	gen.GenerateFn = func(ctx context.Context, prompt string) (string, error) {
		out, err := base(ctx, prompt)
		if strings.Contains(prompt, "quiz questions") {
			// Cancel once the first chapter has everything it needs.
			cancel()
		}
		return out, err
	}
	svc := f.ingestion(t, gen, halfResolver{}, nil)

	result, err := svc.ProcessText(ctx, sampleText(), domain.NewOwnerRef(learnerID, item.ID))
	require.Error(t, err)

	var ingestionErr *IngestionError
	require.ErrorAs(t, err, &ingestionErr)
	assert.Equal(t, StageChapters, ingestionErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, result.ProcessedChapters)
	assert.Len(t, f.stores.Chapters.All(), 1)
	assert.Equal(t, domain.TrackedItemStatusFailed, f.status(t, item.ID))

	count, err := f.stores.Reminders.CountByTrackedItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProcessFileUnsupportedFormat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.ingestion(t, studyGenerator(), halfResolver{}, nil)

	path := filepath.Join(t.TempDir(), "notes.xyz")
	require.NoError(t, os.WriteFile(path, []byte(sampleText()), 0o600))

	_, err := svc.ProcessFile(context.Background(), path, domain.OwnerRef{LearnerID: uuid.New()})
	require.Error(t, err)

	var extractionErr *extract.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
}

func TestIngestDocumentFromBlobStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	learnerID := uuid.New()
	item := f.addItem(t, learnerID)

	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	key := blob.NewKey(item.ID, "book.txt")
	content := []byte(sampleText())
	require.NoError(t, blobs.Put(context.Background(), key, bytes.NewReader(content), int64(len(content))))

	svc := f.ingestion(t, studyGenerator(), halfResolver{}, blobs)

	err = svc.IngestDocument(context.Background(), task.DocumentIngestionRequest{
		TrackedItemID: item.ID,
		LearnerID:     learnerID,
		BlobKey:       key,
		Filename:      "book.txt",
	})
	require.NoError(t, err)

	assert.Len(t, f.stores.Chapters.All(), 2)
	assert.Equal(t, domain.TrackedItemStatusCompleted, f.status(t, item.ID))
}

func TestIngestDocumentMissingBlob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	learnerID := uuid.New()
	item := f.addItem(t, learnerID)

	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := f.ingestion(t, studyGenerator(), halfResolver{}, blobs)

	err = svc.IngestDocument(context.Background(), task.DocumentIngestionRequest{
		TrackedItemID: item.ID,
		LearnerID:     learnerID,
		BlobKey:       blob.NewKey(item.ID, "missing.txt"),
		Filename:      "missing.txt",
	})
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.Equal(t, domain.TrackedItemStatusFailed, f.status(t, item.ID))
}

func TestIngestDocumentWithoutBlobStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := f.ingestion(t, studyGenerator(), halfResolver{}, nil)

	err := svc.IngestDocument(context.Background(), task.DocumentIngestionRequest{
		TrackedItemID: uuid.New(),
		LearnerID:     uuid.New(),
		BlobKey:       "uploads/x/y.txt",
		Filename:      "y.txt",
	})
	assert.ErrorIs(t, err, ErrNoBlobStore)
}
