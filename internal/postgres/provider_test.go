package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
	opts     pgx.TxOptions
	deadline time.Time
}

func (f *fakeDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	f.deadline, _ = ctx.Deadline()
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	p := NewProvider(db, time.Second)

	err := p.WithTx(context.Background(), func(q Querier) error { return nil })
	require.NoError(t, err)
	assert.True(t, db.tx.committed)
	assert.False(t, db.tx.rolledBack)
	assert.False(t, db.deadline.IsZero())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	p := NewProvider(db, time.Second)
	boom := errors.New("boom")

	err := p.WithTx(context.Background(), func(q Querier) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	p := NewProvider(db, 0)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = p.WithTx(context.Background(), func(q Querier) error { panic("kaboom") })
	})
	assert.True(t, db.tx.rolledBack)
	assert.False(t, db.tx.committed)
}

func TestWithTxBeginFailureIsUnavailable(t *testing.T) {
	db := &fakeDB{beginErr: errors.New("dial tcp: connection refused")}
	p := NewProvider(db, time.Second)

	called := false
	err := p.WithTx(context.Background(), func(q Querier) error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, IsKind(err, KindUnavailable))
}

func TestWithTxCommitFailure(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{commitErr: context.DeadlineExceeded}}
	p := NewProvider(db, time.Second)

	err := p.WithTx(context.Background(), func(q Querier) error { return nil })
	assert.True(t, IsKind(err, KindUnavailable))
}

func TestReadUsesReadOnly(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	p := NewProvider(db, time.Second)

	require.NoError(t, p.Read(context.Background(), func(q Querier) error { return nil }))
	assert.Equal(t, pgx.ReadOnly, db.opts.AccessMode)
}

func TestBoundKeepsEarlierDeadline(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	p := NewProvider(db, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	want, _ := ctx.Deadline()

	require.NoError(t, p.WithTx(ctx, func(q Querier) error { return nil }))
	assert.Equal(t, want, db.deadline)
}
