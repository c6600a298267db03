package redisx

import "time"

const (
	// Idempotent order placement: idem:order:create:{user_id}:{key} -> response JSON
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Fixed-window rate limit: ratelimit:{client}:{window_start_unix}
	KeyRateLimit = "ratelimit:%s:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
