package groups

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadsync/pkg/logging"
)

const keyPrefix = "leadsync:groups:"

// RedisCache stores bindings in Redis with a TTL so a group renamed or
// deleted on the provider side is eventually re-resolved.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisCache returns nil when client is nil.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, provider, name string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	id, err := c.client.Get(ctx, cacheKey(provider, name)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("group cache read failed", "provider", provider, "group", name, "error", err)
		}
		return "", false
	}
	return id, id != ""
}

func (c *RedisCache) Set(ctx context.Context, provider, name, id string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(provider, name), id, c.ttl).Err(); err != nil {
		c.logger.Warn("group cache write failed", "provider", provider, "group", name, "error", err)
	}
}

func cacheKey(provider, name string) string {
	return keyPrefix + provider + ":" + name
}
