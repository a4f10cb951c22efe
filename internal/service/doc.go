// Package service contains the application use cases. It orchestrates
// domain objects, the stores defined in internal/store and the
// text-generation collaborators to fulfill the reader's features.
//
// Key components:
//
//   - IngestionService turns a document into persisted chapters, summaries
//     and quiz items, isolating per-chapter failures, and schedules the
//     tracked item's reminders once.
//   - SchedulerService expands a spaced-repetition interval table into
//     reminder tasks and persists them.
//   - TrackedItemService links documents to learners, completes them and
//     reports progress.
//
// Services receive their dependencies through constructor injection and
// depend on store interfaces, never on a specific database.
package service
