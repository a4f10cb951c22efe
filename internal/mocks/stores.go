package mocks

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/store"
)

// MockTrackedItemStore is an in-memory store.TrackedItemStore.
type MockTrackedItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.TrackedItem

	// Errors returned instead of the default behavior when set
	CreateErr error
	GetErr    error
	ListErr   error
	UpdateErr error
}

// NewMockTrackedItemStore creates an empty tracked item store.
func NewMockTrackedItemStore() *MockTrackedItemStore {
	return &MockTrackedItemStore{items: make(map[uuid.UUID]*domain.TrackedItem)}
}

// Create implements store.TrackedItemStore.
func (m *MockTrackedItemStore) Create(ctx context.Context, item *domain.TrackedItem) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if err := item.Validate(); err != nil {
		return store.ErrInvalidEntity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[item.ID]; exists {
		return store.ErrDuplicate
	}
	c := *item
	m.items[item.ID] = &c
	return nil
}

// GetByID implements store.TrackedItemStore.
func (m *MockTrackedItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrackedItem, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, store.ErrTrackedItemNotFound
	}
	c := *item
	return &c, nil
}

// ListByLearner implements store.TrackedItemStore.
func (m *MockTrackedItemStore) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.TrackedItem, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.TrackedItem
	for _, item := range m.items {
		if item.LearnerID == learnerID {
			c := *item
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update implements store.TrackedItemStore.
func (m *MockTrackedItemStore) Update(ctx context.Context, item *domain.TrackedItem) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return store.ErrTrackedItemNotFound
	}
	c := *item
	m.items[item.ID] = &c
	return nil
}

// ClaimForIngestion implements store.TrackedItemStore. The check and the
// write happen under one lock.
func (m *MockTrackedItemStore) ClaimForIngestion(
	ctx context.Context,
	learnerID, id uuid.UUID,
	at time.Time,
) (*domain.TrackedItem, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	switch {
	case !ok || item.LearnerID != learnerID:
		return nil, store.ErrTrackedItemNotFound
	case item.IsProcessing():
		return nil, store.ErrTrackedItemBusy
	}
	item.Status = domain.TrackedItemStatusProcessing
	item.UpdatedAt = at.UTC()
	c := *item
	return &c, nil
}

// WithTx implements store.TrackedItemStore.
func (m *MockTrackedItemStore) WithTx(tx *sql.Tx) store.TrackedItemStore { return m }

// MockChapterStore is an in-memory store.ChapterStore.
type MockChapterStore struct {
	mu       sync.Mutex
	chapters []*domain.Chapter

	// CreateFn, when set, runs before a chapter is stored; an error aborts the insert.
	CreateFn func(ctx context.Context, chapter *domain.Chapter) error
	ListErr  error
}

// NewMockChapterStore creates an empty chapter store.
func NewMockChapterStore() *MockChapterStore {
	return &MockChapterStore{}
}

// Create implements store.ChapterStore.
func (m *MockChapterStore) Create(ctx context.Context, chapter *domain.Chapter) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, chapter); err != nil {
			return err
		}
	}
	if err := chapter.Validate(); err != nil {
		return store.ErrInvalidEntity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *chapter
	m.chapters = append(m.chapters, &c)
	return nil
}

// ListByTrackedItem implements store.ChapterStore.
func (m *MockChapterStore) ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.Chapter, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Chapter
	for _, ch := range m.chapters {
		if ch.TrackedItemID != nil && *ch.TrackedItemID == trackedItemID {
			c := *ch
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// CountByTrackedItem implements store.ChapterStore.
func (m *MockChapterStore) CountByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) (int, error) {
	chapters, err := m.ListByTrackedItem(ctx, trackedItemID)
	return len(chapters), err
}

// All returns every stored chapter in insertion order.
func (m *MockChapterStore) All() []*domain.Chapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Chapter(nil), m.chapters...)
}

// WithTx implements store.ChapterStore.
func (m *MockChapterStore) WithTx(tx *sql.Tx) store.ChapterStore { return m }

// MockSummaryStore is an in-memory store.SummaryStore.
type MockSummaryStore struct {
	mu        sync.Mutex
	summaries []*domain.SummaryRecord

	CreateErr error
	ListErr   error
	// ListCalls counts ListByTrackedItem invocations.
	ListCalls int
}

// NewMockSummaryStore creates an empty summary store.
func NewMockSummaryStore() *MockSummaryStore {
	return &MockSummaryStore{}
}

// Create implements store.SummaryStore.
func (m *MockSummaryStore) Create(ctx context.Context, summary *domain.SummaryRecord) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *summary
	m.summaries = append(m.summaries, &c)
	return nil
}

// ListByTrackedItem implements store.SummaryStore.
func (m *MockSummaryStore) ListByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) ([]*domain.SummaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*domain.SummaryRecord
	for _, s := range m.summaries {
		if s.TrackedItemID != nil && *s.TrackedItemID == trackedItemID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

// All returns every stored summary in insertion order.
func (m *MockSummaryStore) All() []*domain.SummaryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.SummaryRecord(nil), m.summaries...)
}

// WithTx implements store.SummaryStore.
func (m *MockSummaryStore) WithTx(tx *sql.Tx) store.SummaryStore { return m }

// MockQuizItemStore is an in-memory store.QuizItemStore.
type MockQuizItemStore struct {
	mu    sync.Mutex
	items []*domain.QuizItem

	CreateErr error
}

// NewMockQuizItemStore creates an empty quiz item store.
func NewMockQuizItemStore() *MockQuizItemStore {
	return &MockQuizItemStore{}
}

// CreateMultiple implements store.QuizItemStore.
func (m *MockQuizItemStore) CreateMultiple(ctx context.Context, items []*domain.QuizItem) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		c := *item
		m.items = append(m.items, &c)
	}
	return nil
}

// ListByChapter implements store.QuizItemStore.
func (m *MockQuizItemStore) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]*domain.QuizItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.QuizItem
	for _, item := range m.items {
		if item.ChapterID == chapterID {
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

// All returns every stored quiz item.
func (m *MockQuizItemStore) All() []*domain.QuizItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.QuizItem(nil), m.items...)
}

// WithTx implements store.QuizItemStore.
func (m *MockQuizItemStore) WithTx(tx *sql.Tx) store.QuizItemStore { return m }

// MockReminderTaskStore is an in-memory store.ReminderTaskStore that
// enforces the (tracked item, type, stage) uniqueness of the real table.
type MockReminderTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.ReminderTask

	CreateBatchErr error
	FindDueErr     error
	MarkSentErr    error

	// FindDueCalls counts FindDue calls, one per page.
	FindDueCalls int
}

// NewMockReminderTaskStore creates an empty reminder task store.
func NewMockReminderTaskStore() *MockReminderTaskStore {
	return &MockReminderTaskStore{tasks: make(map[uuid.UUID]*domain.ReminderTask)}
}

// CreateBatch implements store.ReminderTaskStore. The batch is all-or-nothing.
func (m *MockReminderTaskStore) CreateBatch(ctx context.Context, tasks []*domain.ReminderTask) error {
	if m.CreateBatchErr != nil {
		return m.CreateBatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type slot struct {
		item  uuid.UUID
		typ   domain.ReminderType
		stage int
	}
	taken := make(map[slot]bool, len(m.tasks)+len(tasks))
	for _, t := range m.tasks {
		taken[slot{t.TrackedItemID, t.Type, t.Stage}] = true
	}
	for _, t := range tasks {
		key := slot{t.TrackedItemID, t.Type, t.Stage}
		if taken[key] {
			return store.ErrDuplicate
		}
		taken[key] = true
	}
	for _, t := range tasks {
		c := *t
		m.tasks[t.ID] = &c
	}
	return nil
}

// FindDue implements store.ReminderTaskStore.
func (m *MockReminderTaskStore) FindDue(ctx context.Context, q store.DueQuery) ([]*domain.ReminderTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindDueCalls++
	if m.FindDueErr != nil {
		return nil, m.FindDueErr
	}
	var out []*domain.ReminderTask
	for _, t := range m.tasks {
		if t.Sent || t.ScheduledFor.After(q.Now) {
			continue
		}
		if q.MaxAttempts > 0 && t.Attempts >= q.MaxAttempts {
			continue
		}
		if q.After != nil && !taskAfter(t, q.After) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sortTasks(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// MarkSent implements store.ReminderTaskStore.
func (m *MockReminderTaskStore) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	if m.MarkSentErr != nil {
		return m.MarkSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Sent {
		return store.ErrReminderTaskNotFound
	}
	return t.MarkSent(sentAt)
}

// RecordFailure implements store.ReminderTaskStore.
func (m *MockReminderTaskStore) RecordFailure(ctx context.Context, id uuid.UUID, lastError string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrReminderTaskNotFound
	}
	t.Attempts++
	t.LastError = lastError
	t.UpdatedAt = at
	return nil
}

// ListByTrackedItem implements store.ReminderTaskStore.
func (m *MockReminderTaskStore) ListByTrackedItem(
	ctx context.Context,
	trackedItemID uuid.UUID,
) ([]*domain.ReminderTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ReminderTask
	for _, t := range m.tasks {
		if t.TrackedItemID == trackedItemID {
			c := *t
			out = append(out, &c)
		}
	}
	sortTasks(out)
	return out, nil
}

// CountByTrackedItem implements store.ReminderTaskStore.
func (m *MockReminderTaskStore) CountByTrackedItem(ctx context.Context, trackedItemID uuid.UUID) (int, error) {
	tasks, err := m.ListByTrackedItem(ctx, trackedItemID)
	return len(tasks), err
}

// Get returns a copy of one task, or nil.
func (m *MockReminderTaskStore) Get(id uuid.UUID) *domain.ReminderTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	c := *t
	return &c
}

// WithTx implements store.ReminderTaskStore.
func (m *MockReminderTaskStore) WithTx(tx *sql.Tx) store.ReminderTaskStore { return m }

// taskAfter orders like the (scheduled_for, id) row comparison in SQL.
func taskAfter(t *domain.ReminderTask, c *store.DueCursor) bool {
	if !t.ScheduledFor.Equal(c.ScheduledFor) {
		return t.ScheduledFor.After(c.ScheduledFor)
	}
	return bytes.Compare(t.ID[:], c.ID[:]) > 0
}

func sortTasks(tasks []*domain.ReminderTask) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].ScheduledFor.Equal(tasks[j].ScheduledFor) {
			return tasks[i].ScheduledFor.Before(tasks[j].ScheduledFor)
		}
		return bytes.Compare(tasks[i].ID[:], tasks[j].ID[:]) < 0
	})
}

// MockStores bundles one in-memory store of each kind.
type MockStores struct {
	TrackedItems *MockTrackedItemStore
	Chapters     *MockChapterStore
	Summaries    *MockSummaryStore
	Quizzes      *MockQuizItemStore
	Reminders    *MockReminderTaskStore
}

// NewMockStores creates an empty set of in-memory stores.
func NewMockStores() *MockStores {
	return &MockStores{
		TrackedItems: NewMockTrackedItemStore(),
		Chapters:     NewMockChapterStore(),
		Summaries:    NewMockSummaryStore(),
		Quizzes:      NewMockQuizItemStore(),
		Reminders:    NewMockReminderTaskStore(),
	}
}

// Stores returns the bundle as store.Stores.
func (m *MockStores) Stores() store.Stores {
	return store.Stores{
		TrackedItems: m.TrackedItems,
		Chapters:     m.Chapters,
		Summaries:    m.Summaries,
		Quizzes:      m.Quizzes,
		Reminders:    m.Reminders,
	}
}

// MockUnitOfWork runs units of work against in-memory stores. It does not
// roll back: writes made before fn fails stay visible.
type MockUnitOfWork struct {
	Stores store.Stores
	// DoErr, when set, is returned without running fn.
	DoErr error

	mu    sync.Mutex
	calls int
}

// NewMockUnitOfWork creates a unit of work over stores.
func NewMockUnitOfWork(stores store.Stores) *MockUnitOfWork {
	return &MockUnitOfWork{Stores: stores}
}

// Do implements store.UnitOfWork.
func (m *MockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.DoErr != nil {
		return m.DoErr
	}
	return fn(ctx, m.Stores)
}

// Calls reports how many units of work ran.
func (m *MockUnitOfWork) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
