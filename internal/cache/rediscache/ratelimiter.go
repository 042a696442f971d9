package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter считает запросы в фиксированном окне (INCR + EXPIRE).
type RateLimiter struct {
	c      *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(addr string, limit int64, window time.Duration) *RateLimiter {
	return NewRateLimiterFromClient(redis.NewClient(&redis.Options{Addr: addr}), limit, window)
}

func NewRateLimiterFromClient(c *redis.Client, limit int64, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{c: c, limit: limit, window: window}
}

// Allow делает INCR и EXPIRE NX в одной транзакции: TTL ставится при создании ключа
// и досыпается, если ключ почему-то остался без него. Окно от этого не сдвигается.
// Возвращает (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, callerKey string) (bool, int64, error) {
	key := "rl:track:" + callerKey

	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}

	n := incr.Val()
	if rl.limit <= 0 {
		return true, n, nil
	}
	return n <= rl.limit, n, nil
}
