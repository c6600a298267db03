package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "__pending__"

var ErrInFlight = errors.New("request with this idempotency key is still in progress")

// IdempotencyStore remembers the response of a completed request so a retry
// with the same key gets the same answer.
type IdempotencyStore struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func NewIdempotencyStore(rdb redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{RDB: rdb, TTL: TTLIdempotency}
}

func orderKey(userID, key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, userID, key)
}

// Begin claims key for userID. It returns the stored response when the key
// already completed, ErrInFlight when another request holds it, or nil,nil
// when the caller now owns the key and must call Finish or Abort.
func (s *IdempotencyStore) Begin(ctx context.Context, userID, key string) ([]byte, error) {
	k := orderKey(userID, key)
	ok, err := Claim(ctx, s.RDB, k, pendingMarker, s.TTL)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	v, err := s.RDB.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		return s.Begin(ctx, userID, key)
	}
	if err != nil {
		return nil, err
	}
	if string(v) == pendingMarker {
		return nil, ErrInFlight
	}
	return v, nil
}

// Finish stores the response for replay.
func (s *IdempotencyStore) Finish(ctx context.Context, userID, key string, response []byte) error {
	return s.RDB.Set(ctx, orderKey(userID, key), response, s.TTL).Err()
}

// Abort releases the key so the request can be retried.
func (s *IdempotencyStore) Abort(ctx context.Context, userID, key string) error {
	return s.RDB.Del(ctx, orderKey(userID, key)).Err()
}
