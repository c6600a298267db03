package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the part of pgx.Tx the repositories use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is satisfied by *pgxpool.Pool.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Provider hands out transactional scopes over a pool. Each scope runs on
// its own pooled connection, which goes back to the pool when the
// transaction ends on every exit path.
type Provider struct {
	db      Beginner
	timeout time.Duration
}

func NewProvider(db Beginner, timeout time.Duration) *Provider {
	return &Provider{db: db, timeout: timeout}
}

// WithTx commits when fn returns nil and rolls back when it returns an
// error or panics.
func (p *Provider) WithTx(ctx context.Context, fn func(q Querier) error) error {
	return p.run(ctx, pgx.TxOptions{}, fn)
}

// Read is WithTx in a read-only transaction.
func (p *Provider) Read(ctx context.Context, fn func(q Querier) error) error {
	return p.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (p *Provider) run(ctx context.Context, opts pgx.TxOptions, fn func(q Querier) error) (err error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return &Fault{Kind: KindUnavailable, Op: "begin", Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return Classify("commit", err)
	}
	return nil
}

// bound applies the store deadline unless the caller already has an
// earlier one.
func (p *Provider) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= p.timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Ping checks the store when the underlying pool supports it.
func (p *Provider) Ping(ctx context.Context) error {
	pg, ok := p.db.(Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := p.bound(ctx)
	defer cancel()
	if err := pg.Ping(ctx); err != nil {
		return &Fault{Kind: KindUnavailable, Op: "ping", Err: err}
	}
	return nil
}
