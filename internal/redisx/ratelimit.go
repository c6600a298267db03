package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
)

// Counter counts hits on key within a window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// WindowCounter is a Counter over INCR + EXPIRE.
type WindowCounter struct {
	RDB redis.Cmdable
}

func (c WindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter allows Limit requests per client IP per Window.
type RateLimiter struct {
	Counter Counter
	Limit   int
	Window  time.Duration
	Log     *logger.Logger
	now     func() time.Time
}

func NewRateLimiter(c Counter, perMinute int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.Nop()
	}
	return &RateLimiter{Counter: c, Limit: perMinute, Window: time.Minute, Log: log, now: time.Now}
}

// Middleware answers 429 over the limit. When redis is unreachable the
// request is let through and the failure logged.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.Limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		start := rl.now().Truncate(rl.Window)
		key := fmt.Sprintf(KeyRateLimit, clientIP(r), start.Unix())
		n, err := rl.Counter.Hit(r.Context(), key, rl.Window)
		if err != nil {
			rl.Log.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		remaining := int64(rl.Limit) - n
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if n > int64(rl.Limit) {
			reset := start.Add(rl.Window).Sub(rl.now())
			w.Header().Set("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP expects RemoteAddr to be rewritten by chi's RealIP upstream.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
