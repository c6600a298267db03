package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := New(addr, os.Getenv("TEST_REDIS_PASSWORD"))
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestIdempotencyStore(t *testing.T) {
	s := NewIdempotencyStore(testClient(t))
	ctx := context.Background()
	user, key := uuid.NewString(), uuid.NewString()

	prev, err := s.Begin(ctx, user, key)
	require.NoError(t, err)
	assert.Nil(t, prev)

	_, err = s.Begin(ctx, user, key)
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, s.Finish(ctx, user, key, []byte(`{"order_id":"o1"}`)))
	prev, err = s.Begin(ctx, user, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"o1"}`, string(prev))

	other, err := s.Begin(ctx, uuid.NewString(), key)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestIdempotencyAbortReleases(t *testing.T) {
	s := NewIdempotencyStore(testClient(t))
	ctx := context.Background()
	user, key := uuid.NewString(), uuid.NewString()

	_, err := s.Begin(ctx, user, key)
	require.NoError(t, err)
	require.NoError(t, s.Abort(ctx, user, key))
	prev, err := s.Begin(ctx, user, key)
	require.NoError(t, err)
	assert.Nil(t, prev)
}

func TestDeduper(t *testing.T) {
	d := Deduper{RDB: testClient(t), Service: "test"}
	ctx := context.Background()
	id := uuid.NewString()

	first, err := d.FirstSeen(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)
	again, err := d.FirstSeen(ctx, id)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, d.Forget(ctx, id))
	first, err = d.FirstSeen(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestWindowCounter(t *testing.T) {
	rdb := testClient(t)
	c := WindowCounter{RDB: rdb}
	ctx := context.Background()
	key := "ratelimit:test:" + uuid.NewString()

	n, err := c.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
