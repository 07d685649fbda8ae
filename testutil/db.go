// Package testutil provides shared helpers for integration tests that need a
// real Postgres. Every helper that takes a *testing.T skips the test when
// TEST_DATABASE_URL is unset, so `go test ./...` stays green without a DB.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql

	"github.com/pkordes/duotrip/backend/migrations"
)

// DSNEnv names the environment variable holding the test database URL.
const DSNEnv = "TEST_DATABASE_URL"

// NewPool opens a *pgxpool.Pool on the test database and closes it when the
// test and its subtests finish.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB opens a *sql.DB on the test database through the pgx stdlib
// driver. goose needs database/sql, so migration tests use this instead of
// NewPool.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := openSQLDB(requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MigrateUp applies every pending migration to the database at dsn.
// It is meant for TestMain, where no *testing.T exists; callers skip it
// themselves when dsn is empty.
func MigrateUp(ctx context.Context, dsn string) error {
	db, err := openSQLDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := migrations.Up(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func openSQLDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// requireDSN returns the test database URL, skipping the test if it is not set.
func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skip(DSNEnv + " not set; skipping integration test")
	}
	return dsn
}
