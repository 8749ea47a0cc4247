package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDeduplicator(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	dedup := NewRedisDeduplicator(rdb, time.Hour)
	ctx := context.Background()

	seen, err := dedup.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, dedup.Remember(ctx, "evt_1"))
	seen, err = dedup.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.Equal(t, time.Hour, mr.TTL("webhook:seen:evt_1"))

	mr.FastForward(2 * time.Hour)
	seen, err = dedup.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisDeduplicatorUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	dedup := NewRedisDeduplicator(rdb, time.Minute)
	_, err := dedup.Seen(context.Background(), "evt_1")
	assert.Error(t, err)
}
