package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator remembers webhook deliveries that were already applied.
// It is an optimization only; callers must stay correct when it errors.
type Deduplicator interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

type redisDeduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduplicator(rdb *redis.Client, ttl time.Duration) Deduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisDeduplicator{rdb: rdb, ttl: ttl}
}

func dedupKey(key string) string {
	return fmt.Sprintf("webhook:seen:%s", key)
}

func (d *redisDeduplicator) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisDeduplicator) Remember(ctx context.Context, key string) error {
	return d.rdb.Set(ctx, dedupKey(key), time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}

// NopDeduplicator never reports a delivery as seen.
type NopDeduplicator struct{}

func (NopDeduplicator) Seen(context.Context, string) (bool, error) { return false, nil }
func (NopDeduplicator) Remember(context.Context, string) error     { return nil }
