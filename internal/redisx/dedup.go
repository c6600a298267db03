package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper marks event ids as seen for one consuming service.
type Deduper struct {
	RDB     redis.Cmdable
	Service string
}

// FirstSeen reports whether id has not been processed by this service yet
// and marks it.
func (d Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return Claim(ctx, d.RDB, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup)
}

// Forget clears the mark so a failed event can be retried.
func (d Deduper) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
