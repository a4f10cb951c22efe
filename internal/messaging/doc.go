// Package messaging defines how reminder text reaches a learner. The
// transport itself lives elsewhere: LogMessenger writes messages to the log
// for local runs, and platform/redis queues them in an outbox for a separate
// delivery worker.
package messaging
