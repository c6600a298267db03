// Package pgtest gives repository tests a migrated store. Tests skip when
// TEST_POSTGRES_DSN is unset.
package pgtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
)

var (
	once    sync.Once
	pool    *pgxpool.Pool
	initErr error
)

// Provider returns a Provider over the shared test pool.
func Provider(tb testing.TB) *postgres.Provider {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set")
	}
	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pool, initErr = postgres.Connect(ctx, postgres.Options{DSN: dsn, MaxConns: 4})
		if initErr != nil {
			return
		}
		initErr = postgres.Migrate(ctx, pool)
	})
	if initErr != nil {
		tb.Fatalf("test store: %v", initErr)
	}
	return postgres.NewProvider(pool, 10*time.Second)
}
