package store

import "context"

// Stores groups the stores available inside a unit of work.
type Stores struct {
	TrackedItems TrackedItemStore
	Chapters     ChapterStore
	Summaries    SummaryStore
	Quizzes      QuizItemStore
	Reminders    ReminderTaskStore
}

// UnitOfWork runs fn with stores that share one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
