// Package rate implements the fixed-window limiter protecting the
// church code endpoints. Two windows run in parallel (hourly and
// daily); a request must clear both. Rejections never reveal which
// window tripped.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"

	"github.com/Amoako419/PhotoShare/pkg/config"
	"github.com/Amoako419/PhotoShare/prometheus"
)

// ErrRateLimited is returned when either window is exhausted.
var ErrRateLimited = errors.New("rate: limit exceeded")

// Limiter admits or rejects an attempt identified by an operation name
// and a caller key (typically the client IP). retryAfter is the time
// until the nearest window resets, suitable for a Retry-After header.
type Limiter interface {
	Allow(ctx context.Context, operation, key string) (retryAfter time.Duration, err error)
}

type window struct {
	max  int
	span time.Duration
	name string
}

func windows(cfg *config.RateLimitConfig) []window {
	return []window{
		{max: cfg.HourlyMax, span: time.Hour, name: "h"},
		{max: cfg.DailyMax, span: 24 * time.Hour, name: "d"},
	}
}

// Fixed-window bucket id: the start of the current window.
func bucket(now time.Time, span time.Duration) int64 {
	return now.Truncate(span).Unix()
}

func counterKey(operation, key, name string, b int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s:%d", operation, key, name, b)
}

// RedisLimiter counts attempts in redis with INCR and a window-length
// TTL set on the first increment. Shared across instances.
type RedisLimiter struct {
	client  *rdb.Client
	windows []window
}

// NewRedisLimiter creates a redis-backed two-window limiter
func NewRedisLimiter(client *rdb.Client, cfg *config.RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{client: client, windows: windows(cfg)}
}

func (l *RedisLimiter) Allow(ctx context.Context, operation, key string) (time.Duration, error) {
	now := time.Now()
	for _, w := range l.windows {
		b := bucket(now, w.span)
		k := counterKey(operation, key, w.name, b)

		count, err := l.client.Incr(ctx, k).Result()
		if err != nil {
			return 0, fmt.Errorf("rate: incr: %w", err)
		}
		if count == 1 {
			l.client.Expire(ctx, k, w.span)
		}
		if count > int64(w.max) {
			prometheus.RecordRateLimited(operation)
			return retryIn(now, w.span), ErrRateLimited
		}
	}
	return 0, nil
}

// MemoryLimiter is the in-process fallback used when redis is not
// configured. Single-process deployments only.
type MemoryLimiter struct {
	cache   *gocache.Cache
	windows []window
}

// NewMemoryLimiter creates an in-process two-window limiter
func NewMemoryLimiter(cfg *config.RateLimitConfig) *MemoryLimiter {
	return &MemoryLimiter{
		cache:   gocache.New(gocache.NoExpiration, 10*time.Minute),
		windows: windows(cfg),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, operation, key string) (time.Duration, error) {
	now := time.Now()
	for _, w := range l.windows {
		b := bucket(now, w.span)
		k := counterKey(operation, key, w.name, b)

		n := int64(1)
		if err := l.cache.Add(k, int64(1), w.span); err != nil {
			var incErr error
			n, incErr = l.cache.IncrementInt64(k, 1)
			if incErr != nil {
				// Item expired between Add and Increment; start over.
				l.cache.Set(k, int64(1), w.span)
				n = 1
			}
		}
		if n > int64(w.max) {
			prometheus.RecordRateLimited(operation)
			return retryIn(now, w.span), ErrRateLimited
		}
	}
	return 0, nil
}

func retryIn(now time.Time, span time.Duration) time.Duration {
	return now.Truncate(span).Add(span).Sub(now)
}
