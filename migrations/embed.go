// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS holds all *.sql migration files embedded at compile time.
// 00003 installs the trigger that feeds the "schedule_items" NOTIFY channel
// consumed by internal/changefeed.
//
//go:embed *.sql
var FS embed.FS

// Up applies every pending migration to db and returns the versions applied.
func Up(ctx context.Context, db *sql.DB) ([]int64, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, FS)
	if err != nil {
		return nil, fmt.Errorf("migrations.Up: create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations.Up: %w", err)
	}
	versions := make([]int64, len(results))
	for i, r := range results {
		versions[i] = r.Source.Version
	}
	return versions, nil
}
