package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linkguard/internal/urlguard"
	"go.uber.org/zap"
)

// RedisVerdictCache shares reputation verdicts between instances.
type RedisVerdictCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisVerdictCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisVerdictCache {
	return &RedisVerdictCache{
		client: client,
		prefix: "reputation:",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisVerdictCache) Get(ctx context.Context, key string) (urlguard.Reputation, bool) {
	fields, err := c.client.HGetAll(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("verdict cache read failed", zap.String("key", key), zap.Error(err))
		}

		return urlguard.Reputation{}, false
	}

	verdict, ok := fields["verdict"]
	if !ok {
		return urlguard.Reputation{}, false
	}

	return urlguard.Reputation{Verdict: urlguard.Verdict(verdict), Vendor: fields["vendor"]}, true
}

func (c *RedisVerdictCache) Set(ctx context.Context, key string, rep urlguard.Reputation) {
	redisKey := c.prefix + key

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, redisKey, map[string]interface{}{
		"verdict": string(rep.Verdict),
		"vendor":  rep.Vendor,
	})

	if c.ttl > 0 {
		pipe.Expire(ctx, redisKey, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("verdict cache write failed", zap.String("key", key), zap.Error(err))
	}
}

var _ urlguard.VerdictCache = (*RedisVerdictCache)(nil)
