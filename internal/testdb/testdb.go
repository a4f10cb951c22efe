//go:build integration

// Package testdb connects integration tests to a real PostgreSQL database.
//
// Tests call Open to get a migrated connection pool and WithTx to run each
// case inside a transaction that is always rolled back, so cases can share
// one database and run in parallel.
//
// The database URL is read from the first non-empty of SCRY_TEST_DATABASE_URL,
// DATABASE_URL and SCRY_DATABASE_URL. When none is set the test is skipped,
// except in CI, where a missing database fails the test.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/scry-reader/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// Timeout bounds each setup step.
const Timeout = 10 * time.Second

// Environment variables checked for the database URL, in order.
var urlEnvVars = []string{"SCRY_TEST_DATABASE_URL", "DATABASE_URL", "SCRY_DATABASE_URL"}

// DatabaseURL returns the configured test database URL, or "".
func DatabaseURL() string {
	for _, name := range urlEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// MaskURL hides the password in a database URL for logs.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable database url]"
	}
	return u.Redacted()
}

func inCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}

// Open returns a pool to the test database with all migrations applied.
// The pool is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		if inCI() {
			t.Fatalf("no test database configured; set one of %v", urlEnvVars)
		}
		t.Skipf("no test database configured; set one of %v", urlEnvVars)
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "open %s", MaskURL(dbURL))
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "ping %s", MaskURL(dbURL))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, postgres.Migrate(ctx, db, postgres.MigrateUp, logger), "apply migrations")
	return db
}

// WithTx runs fn inside a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
