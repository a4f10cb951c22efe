package srs

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSummaryTable(t *testing.T) {
	t.Parallel()
	service, err := NewServiceWithIntervals(IntervalTable{domain.ReminderTypeSummary: {1, 3, 7, 30}})
	require.NoError(t, err, "Failed to create SRS service")

	itemID := uuid.New()
	linkedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tasks, err := service.Plan(itemID, linkedAt)
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	want := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	for i, task := range tasks {
		assert.Equal(t, itemID, task.TrackedItemID)
		assert.Equal(t, domain.ReminderTypeSummary, task.Type)
		assert.Equal(t, i+1, task.Stage)
		assert.True(t, want[i].Equal(task.ScheduledFor), "stage %d: got %s", i+1, task.ScheduledFor)
		assert.False(t, task.Sent)
	}
}

func TestPlanDefaultTable(t *testing.T) {
	t.Parallel()
	service, err := NewServiceWithIntervals(NewDefaultIntervals())
	require.NoError(t, err)

	linkedAt := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	tasks, err := service.Plan(uuid.New(), linkedAt)
	require.NoError(t, err)
	require.Len(t, tasks, 10)

	last := map[domain.ReminderType]*domain.ReminderTask{}
	counts := map[domain.ReminderType]int{}
	for _, task := range tasks {
		if prev, ok := last[task.Type]; ok {
			assert.Equal(t, prev.Stage+1, task.Stage)
			assert.True(t, task.ScheduledFor.After(prev.ScheduledFor))
		} else {
			assert.Equal(t, 1, task.Stage)
		}
		last[task.Type] = task
		counts[task.Type]++
	}
	assert.Equal(t, 4, counts[domain.ReminderTypeSummary])
	assert.Equal(t, 3, counts[domain.ReminderTypeQuiz])
	assert.Equal(t, 3, counts[domain.ReminderTypeTeaching])

	// Lexical grouping keeps output deterministic.
	assert.Equal(t, domain.ReminderTypeQuiz, tasks[0].Type)
	assert.Equal(t, domain.ReminderTypeTeaching, tasks[len(tasks)-1].Type)
}

func TestPlanIsNotDeduplicated(t *testing.T) {
	t.Parallel()
	service, err := NewServiceWithIntervals(NewDefaultIntervals())
	require.NoError(t, err)

	itemID := uuid.New()
	now := time.Now()
	first, err := service.Plan(itemID, now)
	require.NoError(t, err)
	second, err := service.Plan(itemID, now)
	require.NoError(t, err)

	assert.Len(t, second, len(first))
	assert.NotEqual(t, first[0].ID, second[0].ID)
}

func TestPlanRejectsNilTrackedItem(t *testing.T) {
	t.Parallel()
	service, err := NewServiceWithIntervals(NewDefaultIntervals())
	require.NoError(t, err)

	_, err = service.Plan(uuid.Nil, time.Now())
	assert.ErrorIs(t, err, ErrNilTrackedItemID)
}

func TestIntervalTableValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table IntervalTable
		want  error
	}{
		{"default", NewDefaultIntervals(), nil},
		{"empty", IntervalTable{}, ErrInvalidIntervals},
		{"unknown type", IntervalTable{"poem": {1}}, domain.ErrInvalidReminderType},
		{"no offsets", IntervalTable{domain.ReminderTypeQuiz: {}}, ErrInvalidIntervals},
		{"repeated offset", IntervalTable{domain.ReminderTypeQuiz: {2, 2}}, ErrInvalidIntervals},
		{"decreasing", IntervalTable{domain.ReminderTypeQuiz: {5, 2}}, ErrInvalidIntervals},
		{"zero offset", IntervalTable{domain.ReminderTypeQuiz: {0, 2}}, ErrInvalidIntervals},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestIntervalsFromConfig(t *testing.T) {
	t.Parallel()
	table, err := IntervalsFromConfig(map[string][]int{"summary": {1, 3}, "teaching": {4}})
	require.NoError(t, err)
	assert.Equal(t, []domain.ReminderType{domain.ReminderTypeSummary, domain.ReminderTypeTeaching}, table.Types())
	assert.Equal(t, 3, table.TotalStages())

	_, err = IntervalsFromConfig(map[string][]int{"flashcards": {1}})
	assert.ErrorIs(t, err, domain.ErrInvalidReminderType)
}

func TestNewServiceWithIntervals(t *testing.T) {
	t.Parallel()

	table := IntervalTable{domain.ReminderTypeQuiz: {2, 5}}
	service, err := NewServiceWithIntervals(table)
	require.NoError(t, err)
	assert.Equal(t, table, service.Intervals())

	_, err = NewServiceWithIntervals(IntervalTable{domain.ReminderTypeQuiz: {5, 2}})
	assert.Error(t, err)
	_, err = NewServiceWithIntervals(IntervalTable{})
	assert.Error(t, err)
}
