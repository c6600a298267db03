package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schema string

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return Classify("migrate", err)
	}
	return nil
}
