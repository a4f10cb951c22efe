package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/chapters"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/extract"
	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/phrazzld/scry-reader/internal/platform/blob"
	"github.com/phrazzld/scry-reader/internal/store"
	"github.com/phrazzld/scry-reader/internal/task"
)

// TextExtractor reads document text from disk and enforces the minimum length.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
	CheckLength(text string) error
}

// ChapterResolver splits document text into chapters.
type ChapterResolver interface {
	Resolve(ctx context.Context, text string) (chapters.Result, error)
}

// IngestionConfig holds the pipeline's tunables.
type IngestionConfig struct {
	// QuizQuestions is how many quiz items are requested per chapter.
	QuizQuestions int
}

// ChapterOutcome reports what happened to one chapter.
type ChapterOutcome struct {
	Index         int       `json:"index"`
	Title         string    `json:"title"`
	ChapterID     uuid.UUID `json:"chapter_id,omitempty"`
	SummaryFailed bool      `json:"summary_failed"`
	QuizItems     int       `json:"quiz_items"`
	Persisted     bool      `json:"persisted"`
	Error         string    `json:"error,omitempty"`
}

// Failed reports whether the chapter counts as a failure.
func (o ChapterOutcome) Failed() bool {
	return o.SummaryFailed || !o.Persisted
}

// IngestionResult summarizes one pipeline run. Success is false only for
// fatal errors; chapter failures show up in FailedChapters and HadFailures.
type IngestionResult struct {
	Success            bool             `json:"success"`
	TotalChapters      int              `json:"total_chapters"`
	ProcessedChapters  int              `json:"processed_chapters"`
	FailedChapters     int              `json:"failed_chapters"`
	HadFailures        bool             `json:"had_failures"`
	UsedFallback       bool             `json:"used_fallback"`
	Chapters           []ChapterOutcome `json:"chapters"`
	RemindersScheduled int              `json:"reminders_scheduled"`
}

// IngestionService runs the document pipeline: extract, resolve chapters,
// summarize and quiz each chapter, persist, and schedule reminders.
//
// Runs for the same tracked item must not overlap; callers serialize them
// (see TrackedItemService.BeginIngestion).
type IngestionService struct {
	extractor TextExtractor
	resolver  ChapterResolver
	tutor     *generation.Tutor
	uow       store.UnitOfWork
	scheduler *SchedulerService
	blobs     blob.Store
	cfg       IngestionConfig
	logger    *slog.Logger
}

var _ task.DocumentIngester = (*IngestionService)(nil)

// NewIngestionService creates an IngestionService. blobs may be nil when
// documents are only ingested from local paths.
func NewIngestionService(
	extractor TextExtractor,
	resolver ChapterResolver,
	tutor *generation.Tutor,
	uow store.UnitOfWork,
	scheduler *SchedulerService,
	blobs blob.Store,
	cfg IngestionConfig,
	logger *slog.Logger,
) (*IngestionService, error) {
	switch {
	case extractor == nil:
		return nil, errors.New("extractor cannot be nil")
	case resolver == nil:
		return nil, errors.New("chapter resolver cannot be nil")
	case tutor == nil:
		return nil, errors.New("tutor cannot be nil")
	case uow == nil:
		return nil, errors.New("unit of work cannot be nil")
	case scheduler == nil:
		return nil, errors.New("scheduler cannot be nil")
	case logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.QuizQuestions <= 0 {
		cfg.QuizQuestions = 3
	}

	return &IngestionService{
		extractor: extractor,
		resolver:  resolver,
		tutor:     tutor,
		uow:       uow,
		scheduler: scheduler,
		blobs:     blobs,
		cfg:       cfg,
		logger:    logger.With("component", "ingestion_service"),
	}, nil
}

// IngestDocument implements task.DocumentIngester for uploads kept in the
// blob store.
func (s *IngestionService) IngestDocument(ctx context.Context, req task.DocumentIngestionRequest) error {
	if s.blobs == nil {
		return ErrNoBlobStore
	}
	owner := domain.NewOwnerRef(req.LearnerID, req.TrackedItemID)

	path, cleanup, err := blob.Localize(ctx, s.blobs, req.BlobKey)
	if err != nil {
		s.finish(ctx, owner, domain.TrackedItemStatusFailed)
		return &IngestionError{Stage: StageExtraction, Err: err}
	}
	defer cleanup()

	result, err := s.ProcessFile(ctx, path, owner)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "ingested uploaded document",
		slog.String("tracked_item_id", req.TrackedItemID.String()),
		slog.String("filename", req.Filename),
		slog.Int("chapters", result.TotalChapters),
		slog.Int("failed_chapters", result.FailedChapters))
	return nil
}

// ProcessFile extracts the document at path and processes its text.
// Extraction failures are fatal and wrap an *extract.ExtractionError.
func (s *IngestionService) ProcessFile(ctx context.Context, path string, owner domain.OwnerRef) (IngestionResult, error) {
	if owner.LearnerID == uuid.Nil {
		return IngestionResult{}, &IngestionError{Stage: StageValidation, Err: ErrInvalidOwner}
	}

	text, err := s.extractor.Extract(ctx, path)
	if err != nil {
		s.logger.WarnContext(ctx, "document extraction failed",
			slog.String("format", extract.Format(path)),
			slog.String("error", err.Error()))
		s.finish(ctx, owner, domain.TrackedItemStatusFailed)
		return IngestionResult{}, &IngestionError{Stage: StageExtraction, Err: err}
	}
	return s.ProcessText(ctx, text, owner)
}

// ProcessText resolves text into chapters and processes each one in its
// own unit of work. A failure in one chapter does not stop the others.
//
// When ctx is cancelled the run stops before the next chapter and returns
// the partial result with an IngestionError wrapping ctx.Err(); chapters
// already committed stay.
func (s *IngestionService) ProcessText(ctx context.Context, text string, owner domain.OwnerRef) (IngestionResult, error) {
	var result IngestionResult
	if owner.LearnerID == uuid.Nil {
		return result, &IngestionError{Stage: StageValidation, Err: ErrInvalidOwner}
	}
	if err := s.extractor.CheckLength(text); err != nil {
		s.finish(ctx, owner, domain.TrackedItemStatusFailed)
		return result, &IngestionError{Stage: StageExtraction, Err: &extract.ExtractionError{Err: err}}
	}

	if err := s.setStatus(ctx, owner, domain.TrackedItemStatusProcessing); err != nil {
		return result, &IngestionError{Stage: StageStatus, Err: err}
	}

	resolved, err := s.resolver.Resolve(ctx, text)
	if err != nil {
		s.finish(ctx, owner, domain.TrackedItemStatusFailed)
		return result, &IngestionError{Stage: StageChapters, Err: err}
	}
	result.TotalChapters = len(resolved.Chapters)
	result.UsedFallback = resolved.UsedFallback

	for i, ch := range resolved.Chapters {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "ingestion cancelled",
				slog.Int("processed", result.ProcessedChapters),
				slog.Int("total", result.TotalChapters))
			s.finish(ctx, owner, domain.TrackedItemStatusFailed)
			return result, &IngestionError{Stage: StageChapters, Err: err}
		}

		outcome, err := s.processChapter(ctx, owner, i, ch)
		if err != nil {
			s.finish(ctx, owner, domain.TrackedItemStatusFailed)
			return result, &IngestionError{Stage: StageChapters, Err: err}
		}
		result.Chapters = append(result.Chapters, outcome)
		if outcome.Persisted {
			result.ProcessedChapters++
		}
		if outcome.Failed() {
			result.FailedChapters++
			result.HadFailures = true
		}
	}

	if owner.HasTrackedItem() {
		scheduled, err := s.scheduleOnce(ctx, *owner.TrackedItemID)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to schedule reminders",
				slog.String("tracked_item_id", owner.TrackedItemID.String()),
				slog.String("error", err.Error()))
			result.HadFailures = true
		}
		result.RemindersScheduled = scheduled
	}

	status := domain.TrackedItemStatusCompleted
	if result.HadFailures {
		status = domain.TrackedItemStatusCompletedWithErrors
	}
	s.finish(ctx, owner, status)

	result.Success = true
	s.logger.InfoContext(ctx, "ingestion finished",
		slog.String("learner_id", owner.LearnerID.String()),
		slog.Int("chapters", result.TotalChapters),
		slog.Int("failed_chapters", result.FailedChapters),
		slog.Bool("used_fallback", result.UsedFallback),
		slog.Int("reminders_scheduled", result.RemindersScheduled))
	return result, nil
}

// processChapter generates and persists one chapter. Generation and store
// failures are recorded in the outcome; only cancellation is returned.
func (s *IngestionService) processChapter(
	ctx context.Context,
	owner domain.OwnerRef,
	index int,
	ch chapters.Chapter,
) (ChapterOutcome, error) {
	outcome := ChapterOutcome{Index: index, Title: ch.Title}
	log := s.logger.With(slog.Int("chapter", index), slog.String("title", ch.Title))

	summary, err := s.tutor.SummarizeChapter(ctx, ch.Title, ch.Content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		log.WarnContext(ctx, "chapter summary failed", slog.String("error", err.Error()))
		outcome.SummaryFailed = true
	}

	pairs, err := s.tutor.GenerateQuiz(ctx, ch.Content, s.cfg.QuizQuestions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		log.WarnContext(ctx, "chapter quiz failed", slog.String("error", err.Error()))
		pairs = nil
	}

	err = s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		chapter, err := domain.NewChapter(owner, index, ch.Title, ch.Start, ch.End, ch.Content)
		if err != nil {
			return err
		}
		if err := st.Chapters.Create(ctx, chapter); err != nil {
			return err
		}

		var record *domain.SummaryRecord
		if outcome.SummaryFailed {
			record, err = domain.NewFailedSummaryRecord(owner, &chapter.ID, ch.Title)
		} else {
			record, err = domain.NewSummaryRecord(owner, &chapter.ID, ch.Title, summary)
		}
		if err != nil {
			return err
		}
		if err := st.Summaries.Create(ctx, record); err != nil {
			return err
		}

		items := make([]*domain.QuizItem, 0, len(pairs))
		for _, p := range pairs {
			item, err := domain.NewQuizItem(chapter.ID, p.Question, p.Answer)
			if err != nil {
				log.DebugContext(ctx, "skipping invalid quiz item", slog.String("error", err.Error()))
				continue
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			if err := st.Quizzes.CreateMultiple(ctx, items); err != nil {
				return err
			}
		}

		outcome.ChapterID = chapter.ID
		outcome.QuizItems = len(items)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		log.ErrorContext(ctx, "failed to persist chapter", slog.String("error", err.Error()))
		outcome.ChapterID = uuid.Nil
		outcome.QuizItems = 0
		outcome.Error = err.Error()
		return outcome, nil
	}

	outcome.Persisted = true
	return outcome, nil
}

// scheduleOnce creates the item's reminder schedule unless one exists.
func (s *IngestionService) scheduleOnce(ctx context.Context, trackedItemID uuid.UUID) (int, error) {
	var scheduled int
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		existing, err := st.Reminders.CountByTrackedItem(ctx, trackedItemID)
		if err != nil {
			return err
		}
		if existing > 0 {
			s.logger.DebugContext(ctx, "reminders already scheduled",
				slog.String("tracked_item_id", trackedItemID.String()),
				slog.Int("existing", existing))
			return nil
		}
		tasks, err := s.scheduler.Schedule(ctx, st.Reminders, trackedItemID)
		if err != nil {
			return err
		}
		scheduled = len(tasks)
		return nil
	})
	return scheduled, err
}

// setStatus moves the owner's tracked item to status. Owners without a
// tracked item are a no-op.
func (s *IngestionService) setStatus(ctx context.Context, owner domain.OwnerRef, status domain.TrackedItemStatus) error {
	if !owner.HasTrackedItem() {
		return nil
	}
	return s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		item, err := st.TrackedItems.GetByID(ctx, *owner.TrackedItemID)
		if err != nil {
			return err
		}
		if item.LearnerID != owner.LearnerID {
			return store.ErrTrackedItemNotFound
		}
		if err := item.UpdateStatus(status); err != nil {
			return err
		}
		return st.TrackedItems.Update(ctx, item)
	})
}

// finish records a terminal status even when ctx is already cancelled.
func (s *IngestionService) finish(ctx context.Context, owner domain.OwnerRef, status domain.TrackedItemStatus) {
	if err := s.setStatus(context.WithoutCancel(ctx), owner, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to update tracked item status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
}
