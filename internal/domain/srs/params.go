package srs

import (
	"fmt"
	"sort"

	"github.com/phrazzld/scry-reader/internal/domain"
)

// IntervalTable maps a reminder type to ordered day offsets from the link
// event. Offset i produces the reminder with stage i+1.
type IntervalTable map[domain.ReminderType][]int

// NewDefaultIntervals returns the standard spaced-repetition table.
func NewDefaultIntervals() IntervalTable {
	return IntervalTable{
		domain.ReminderTypeSummary:  {1, 3, 7, 30},
		domain.ReminderTypeQuiz:     {2, 5, 14},
		domain.ReminderTypeTeaching: {4, 10, 21},
	}
}

// IntervalsFromConfig converts the configured string-keyed table.
func IntervalsFromConfig(raw map[string][]int) (IntervalTable, error) {
	table := make(IntervalTable, len(raw))
	for name, offsets := range raw {
		table[domain.ReminderType(name)] = append([]int(nil), offsets...)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks that every type is known and its offsets are positive and
// strictly increasing, which keeps scheduled_for increasing with stage.
func (t IntervalTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: interval table is empty", ErrInvalidIntervals)
	}
	for reminderType, offsets := range t {
		if !reminderType.IsValid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidReminderType, reminderType)
		}
		if len(offsets) == 0 {
			return fmt.Errorf("%w: %s has no offsets", ErrInvalidIntervals, reminderType)
		}
		prev := 0
		for i, days := range offsets {
			if days <= prev {
				return fmt.Errorf("%w: %s offset %d (%d days) must exceed %d",
					ErrInvalidIntervals, reminderType, i, days, prev)
			}
			prev = days
		}
	}
	return nil
}

// Types returns the table's reminder types in lexical order.
func (t IntervalTable) Types() []domain.ReminderType {
	types := make([]domain.ReminderType, 0, len(t))
	for reminderType := range t {
		types = append(types, reminderType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// TotalStages returns the number of reminders one link event produces.
func (t IntervalTable) TotalStages() int {
	n := 0
	for _, offsets := range t {
		n += len(offsets)
	}
	return n
}
