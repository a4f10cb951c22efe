// Package domain contains the core entities of the reading companion:
// tracked items (a learner's book in progress), the chapters resolved from an
// ingested document, the study artifacts generated for each chapter, and the
// reminder tasks that re-surface those artifacts on a spaced schedule.
//
// Entities reference each other by ID only. A ReminderTask points at its
// TrackedItem through TrackedItemID and is resolved through the store.
package domain
