package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/clock"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/generation"
	"github.com/phrazzld/scry-reader/internal/store"
)

// LinkRequest describes a document a learner starts following.
type LinkRequest struct {
	Title       string
	Author      string
	Description string
	// Overview asks for a generated whole-book overview summary.
	Overview bool
}

// LinkResult is the outcome of linking a tracked item.
type LinkResult struct {
	Item      *domain.TrackedItem
	Reminders []*domain.ReminderTask
	Overview  *domain.SummaryRecord
}

// ChapterView is a chapter with its summary and quiz items.
type ChapterView struct {
	Chapter   *domain.Chapter       `json:"chapter"`
	Summary   *domain.SummaryRecord `json:"summary,omitempty"`
	QuizItems []*domain.QuizItem    `json:"quiz_items"`
}

// ItemContent is everything generated for a tracked item.
type ItemContent struct {
	Overviews []*domain.SummaryRecord `json:"overviews"`
	Chapters  []ChapterView           `json:"chapters"`
}

// ItemProgress is one line of a learner's progress report.
type ItemProgress struct {
	Item             *domain.TrackedItem `json:"item"`
	Chapters         int                 `json:"chapters"`
	RemindersSent    int                 `json:"reminders_sent"`
	RemindersPending int                 `json:"reminders_pending"`
	Completed        bool                `json:"completed"`
}

// TrackedItemService manages the documents a learner follows.
type TrackedItemService struct {
	stores    store.Stores
	uow       store.UnitOfWork
	scheduler *SchedulerService
	tutor     *generation.Tutor
	clock     clock.Clock
	logger    *slog.Logger
}

// NewTrackedItemService creates a TrackedItemService. tutor may be nil, in
// which case overviews fall back to the item's description.
func NewTrackedItemService(
	stores store.Stores,
	uow store.UnitOfWork,
	scheduler *SchedulerService,
	tutor *generation.Tutor,
	clk clock.Clock,
	logger *slog.Logger,
) (*TrackedItemService, error) {
	switch {
	case stores.TrackedItems == nil || stores.Chapters == nil || stores.Summaries == nil ||
		stores.Quizzes == nil || stores.Reminders == nil:
		return nil, errors.New("all stores are required")
	case uow == nil:
		return nil, errors.New("unit of work cannot be nil")
	case scheduler == nil:
		return nil, errors.New("scheduler cannot be nil")
	case clk == nil:
		return nil, errors.New("clock cannot be nil")
	case logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	return &TrackedItemService{
		stores:    stores,
		uow:       uow,
		scheduler: scheduler,
		tutor:     tutor,
		clock:     clk,
		logger:    logger.With("component", "tracked_item_service"),
	}, nil
}

// Link creates a tracked item and schedules its reminders in one unit of
// work. The optional overview is generated afterwards; failing to produce
// it never fails the link.
func (s *TrackedItemService) Link(ctx context.Context, learnerID uuid.UUID, req LinkRequest) (*LinkResult, error) {
	item, err := domain.NewTrackedItem(learnerID, req.Title, req.Author, req.Description)
	if err != nil {
		return nil, err
	}

	result := &LinkResult{Item: item}
	err = s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		if err := st.TrackedItems.Create(ctx, item); err != nil {
			return err
		}
		tasks, err := s.scheduler.Schedule(ctx, st.Reminders, item.ID)
		if err != nil {
			return err
		}
		result.Reminders = tasks
		return nil
	})
	if err != nil {
		return nil, NewServiceError("link", "failed to create tracked item", err)
	}

	s.logger.InfoContext(ctx, "linked tracked item",
		slog.String("tracked_item_id", item.ID.String()),
		slog.String("learner_id", learnerID.String()),
		slog.Int("reminders", len(result.Reminders)))

	if req.Overview {
		result.Overview = s.createOverview(ctx, item)
	}
	return result, nil
}

func (s *TrackedItemService) createOverview(ctx context.Context, item *domain.TrackedItem) *domain.SummaryRecord {
	text := ""
	if s.tutor != nil {
		generated, err := s.tutor.Overview(ctx, item.Title, item.Author)
		if err != nil {
			s.logger.WarnContext(ctx, "overview generation failed, using description",
				slog.String("tracked_item_id", item.ID.String()),
				slog.String("error", err.Error()))
		} else {
			text = generated
		}
	}
	if text == "" {
		text = strings.TrimSpace(item.Description)
	}
	if text == "" {
		return nil
	}

	record, err := domain.NewSummaryRecord(
		domain.NewOwnerRef(item.LearnerID, item.ID), nil, "Overview: "+item.Title, text)
	if err != nil {
		return nil
	}
	if err := s.stores.Summaries.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to save overview",
			slog.String("tracked_item_id", item.ID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return record
}

// Get returns one of the learner's tracked items. Items of other learners
// are reported as store.ErrTrackedItemNotFound.
func (s *TrackedItemService) Get(ctx context.Context, learnerID, id uuid.UUID) (*domain.TrackedItem, error) {
	return owned(ctx, s.stores.TrackedItems, learnerID, id)
}

// List returns the learner's tracked items, newest first.
func (s *TrackedItemService) List(ctx context.Context, learnerID uuid.UUID) ([]*domain.TrackedItem, error) {
	items, err := s.stores.TrackedItems.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, NewServiceError("list", "failed to list tracked items", err)
	}
	return items, nil
}

// Complete marks the item finished. Completing twice keeps the first time.
func (s *TrackedItemService) Complete(ctx context.Context, learnerID, id uuid.UUID) (*domain.TrackedItem, error) {
	var item *domain.TrackedItem
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		item, err = owned(ctx, st.TrackedItems, learnerID, id)
		if err != nil {
			return err
		}
		item.MarkCompleted(s.clock.Now())
		return st.TrackedItems.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// BeginIngestion claims the item for a document run by moving it to
// processing. It fails with ErrIngestionInProgress while a run is active,
// including when another caller claims the item at the same moment.
func (s *TrackedItemService) BeginIngestion(ctx context.Context, learnerID, id uuid.UUID) (*domain.TrackedItem, error) {
	item, err := s.stores.TrackedItems.ClaimForIngestion(ctx, learnerID, id, s.clock.Now())
	if errors.Is(err, store.ErrTrackedItemBusy) {
		return nil, ErrIngestionInProgress
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AbortIngestion marks a claimed item failed when its run never started.
func (s *TrackedItemService) AbortIngestion(ctx context.Context, learnerID, id uuid.UUID) error {
	return s.uow.Do(context.WithoutCancel(ctx), func(ctx context.Context, st store.Stores) error {
		item, err := owned(ctx, st.TrackedItems, learnerID, id)
		if err != nil {
			return err
		}
		if err := item.UpdateStatus(domain.TrackedItemStatusFailed); err != nil {
			return err
		}
		return st.TrackedItems.Update(ctx, item)
	})
}

// Content returns the item's overviews and its chapters with summaries and
// quiz items, in chapter order.
func (s *TrackedItemService) Content(ctx context.Context, learnerID, id uuid.UUID) (*ItemContent, error) {
	if _, err := s.Get(ctx, learnerID, id); err != nil {
		return nil, err
	}

	chapters, err := s.stores.Chapters.ListByTrackedItem(ctx, id)
	if err != nil {
		return nil, NewServiceError("content", "failed to list chapters", err)
	}
	summaries, err := s.stores.Summaries.ListByTrackedItem(ctx, id)
	if err != nil {
		return nil, NewServiceError("content", "failed to list summaries", err)
	}

	content := &ItemContent{
		Overviews: []*domain.SummaryRecord{},
		Chapters:  make([]ChapterView, 0, len(chapters)),
	}
	byChapter := make(map[uuid.UUID]*domain.SummaryRecord, len(summaries))
	for _, sum := range summaries {
		if sum.ChapterID == nil {
			content.Overviews = append(content.Overviews, sum)
			continue
		}
		byChapter[*sum.ChapterID] = sum
	}

	for _, ch := range chapters {
		items, err := s.stores.Quizzes.ListByChapter(ctx, ch.ID)
		if err != nil {
			return nil, NewServiceError("content", "failed to list quiz items", err)
		}
		if items == nil {
			items = []*domain.QuizItem{}
		}
		content.Chapters = append(content.Chapters, ChapterView{
			Chapter:   ch,
			Summary:   byChapter[ch.ID],
			QuizItems: items,
		})
	}
	return content, nil
}

// Reminders returns the item's reminder tasks ordered by scheduled time.
func (s *TrackedItemService) Reminders(ctx context.Context, learnerID, id uuid.UUID) ([]*domain.ReminderTask, error) {
	if _, err := s.Get(ctx, learnerID, id); err != nil {
		return nil, err
	}
	tasks, err := s.stores.Reminders.ListByTrackedItem(ctx, id)
	if err != nil {
		return nil, NewServiceError("reminders", "failed to list reminders", err)
	}
	return tasks, nil
}

// Progress reports chapter and reminder counts for each of the learner's items.
func (s *TrackedItemService) Progress(ctx context.Context, learnerID uuid.UUID) ([]ItemProgress, error) {
	items, err := s.List(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	report := make([]ItemProgress, 0, len(items))
	for _, item := range items {
		chapters, err := s.stores.Chapters.CountByTrackedItem(ctx, item.ID)
		if err != nil {
			return nil, NewServiceError("progress", "failed to count chapters", err)
		}
		tasks, err := s.stores.Reminders.ListByTrackedItem(ctx, item.ID)
		if err != nil {
			return nil, NewServiceError("progress", "failed to list reminders", err)
		}

		p := ItemProgress{Item: item, Chapters: chapters, Completed: item.Completed}
		for _, t := range tasks {
			if t.Sent {
				p.RemindersSent++
			} else {
				p.RemindersPending++
			}
		}
		report = append(report, p)
	}
	return report, nil
}

// owned loads id and hides items that belong to someone else.
func owned(ctx context.Context, items store.TrackedItemStore, learnerID, id uuid.UUID) (*domain.TrackedItem, error) {
	item, err := items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.LearnerID != learnerID {
		return nil, store.ErrTrackedItemNotFound
	}
	return item, nil
}
