//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/linkguard/internal/store"
	"github.com/serroba/linkguard/internal/urlguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	client := redisClient(t)
	s := store.NewRateLimitRedisStore(client)
	ctx := context.Background()
	key := "it:" + uuid.NewString()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Record(ctx, key, time.Minute)

		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	ttl, err := client.PTTL(ctx, "ratelimit:"+key).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	client.Del(ctx, "ratelimit:"+key)
}

func TestRedisVerdictCacheIntegration(t *testing.T) {
	client := redisClient(t)
	c := store.NewRedisVerdictCache(client, time.Minute, zap.NewNop())
	ctx := context.Background()
	key := urlguard.CacheKey("https://" + uuid.NewString() + ".example")

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	rep := urlguard.Reputation{Verdict: urlguard.VerdictBlock, Vendor: urlguard.VendorSafeBrowsing}
	c.Set(ctx, key, rep)

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, rep, got)

	client.Del(ctx, "reputation:"+key)
}
