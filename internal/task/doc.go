// Package task runs background work. Tasks are persisted through a
// TaskStore before they are queued, so a restart can recover pending and
// interrupted tasks by rebuilding them with registered factories. The
// package also provides a Scheduler for periodic jobs such as reminder
// dispatch scans.
package task
