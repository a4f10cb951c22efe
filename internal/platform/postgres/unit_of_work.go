package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/scry-reader/internal/store"
)

// UnitOfWork implements store.UnitOfWork with one database transaction per Do.
type UnitOfWork struct {
	db     *sql.DB
	stores store.Stores
}

// NewUnitOfWork creates a UnitOfWork whose stores are bound to a fresh
// transaction on every call.
func NewUnitOfWork(db *sql.DB, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{db: db, stores: NewStores(db, logger)}
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// NewStores returns every store bound to db.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		TrackedItems: NewPostgresTrackedItemStore(db, logger),
		Chapters:     NewPostgresChapterStore(db, logger),
		Summaries:    NewPostgresSummaryStore(db, logger),
		Quizzes:      NewPostgresQuizItemStore(db, logger),
		Reminders:    NewPostgresReminderTaskStore(db, logger),
	}
}

// Do implements store.UnitOfWork.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return store.RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			TrackedItems: u.stores.TrackedItems.WithTx(tx),
			Chapters:     u.stores.Chapters.WithTx(tx),
			Summaries:    u.stores.Summaries.WithTx(tx),
			Quizzes:      u.stores.Quizzes.WithTx(tx),
			Reminders:    u.stores.Reminders.WithTx(tx),
		})
	})
}
