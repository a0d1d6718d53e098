// Package ratelimit implements a fixed-window request counter in Redis.
//
// Each (resource, client) pair gets a key like "rl:login:ip:203.0.113.7".
// INCR bumps it; the first increment in a window also sets the EXPIRE, so
// the key, and with it the count, disappears when the window ends.
//
// A fixed window allows up to 2×limit requests around a window boundary.
// For slowing down password guessing that is fine.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/artifact-cms/internal/metrics"
)

// Limiter counts requests per key in Redis.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// New creates a Limiter allowing limit requests per window for each key.
func New(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parsing REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ratelimit: pinging redis: %w", err)
	}
	return rdb, nil
}

// Allow records one request for (resource, id) and reports whether it is
// within the limit.
//
// A Redis error is returned to the caller together with allowed=false; the
// HTTP middleware decides to let the request through anyway.
func (l *Limiter) Allow(ctx context.Context, resource, id string) (bool, error) {
	key := fmt.Sprintf("rl:%s:%s", resource, id)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		metrics.RedisErrors.WithLabelValues("incr").Inc()
		return false, fmt.Errorf("ratelimit: incrementing %s: %w", key, err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			// Without a TTL the key would count forever; drop it so the next
			// request starts a fresh window.
			metrics.RedisErrors.WithLabelValues("expire").Inc()
			l.rdb.Del(ctx, key)
			return false, fmt.Errorf("ratelimit: setting expiry on %s: %w", key, err)
		}
	}

	return count <= int64(l.limit), nil
}

// Limit reports the configured per-window limit.
func (l *Limiter) Limit() int { return l.limit }

// Window reports the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }
