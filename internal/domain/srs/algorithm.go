package srs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/domain"
)

// Plan expands the table into tasks grouped by type (lexical order) with
// stages ascending. scheduled_for is now plus the offset in calendar days,
// in UTC.
func Plan(trackedItemID uuid.UUID, table IntervalTable, now time.Time) ([]*domain.ReminderTask, error) {
	base := now.UTC()
	tasks := make([]*domain.ReminderTask, 0, table.TotalStages())

	for _, reminderType := range table.Types() {
		for i, days := range table[reminderType] {
			task, err := domain.NewReminderTask(trackedItemID, reminderType, i+1, base.AddDate(0, 0, days))
			if err != nil {
				return nil, fmt.Errorf("failed to plan %s stage %d: %w", reminderType, i+1, err)
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}
