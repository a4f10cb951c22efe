package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryTaskStore is a TaskStore backed by a map.
type memoryTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	saveErr error
	history map[uuid.UUID][]TaskStatus
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{
		records: make(map[uuid.UUID]*Record),
		history: make(map[uuid.UUID][]TaskStatus),
	}
}

func (s *memoryTaskStore) SaveTask(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now().UTC()
	s.records[task.ID()] = &Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.history[task.ID()] = append(s.history[task.ID()], task.Status())
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = msg
	rec.UpdatedAt = time.Now().UTC()
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *memoryTaskStore) GetPendingTasks(context.Context) ([]Record, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

func (s *memoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *memoryTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) <= olderThan {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

// put inserts a record directly, as if left behind by an earlier process.
func (s *memoryTaskStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func (s *memoryTaskStore) get(id uuid.UUID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (s *memoryTaskStore) statuses(id uuid.UUID) []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaskStatus(nil), s.history[id]...)
}

// funcTask is a Task whose Execute calls run.
type funcTask struct {
	id      uuid.UUID
	typ     string
	payload []byte
	run     func(ctx context.Context) error
}

func newFuncTask(run func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), typ: "test_task", payload: []byte(`{}`), run: run}
}

func (t *funcTask) ID() uuid.UUID      { return t.id }
func (t *funcTask) Type() string       { return t.typ }
func (t *funcTask) Payload() []byte    { return t.payload }
func (t *funcTask) Status() TaskStatus { return TaskStatusPending }
func (t *funcTask) Execute(ctx context.Context) error {
	if t.run == nil {
		return nil
	}
	return t.run(ctx)
}

// ingesterFunc adapts a function to DocumentIngester.
type ingesterFunc func(ctx context.Context, req DocumentIngestionRequest) error

func (f ingesterFunc) IngestDocument(ctx context.Context, req DocumentIngestionRequest) error {
	return f(ctx, req)
}
