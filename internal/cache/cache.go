package cache

import (
	"context"
	"time"
)

// KV: минимальный key-value контракт, в проде это rediscache.RedisCache.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
