// Package store defines the persistence interfaces for tracked items,
// chapters, summaries, quiz items and reminder tasks.
//
// Every store has a WithTx variant so several writes can share one
// transaction. UnitOfWork wraps that pattern: the ingestion pipeline writes
// each chapter and its artifacts through a single Do call, which either
// commits all of them or none.
package store
