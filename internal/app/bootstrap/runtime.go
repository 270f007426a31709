package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/leadsync/internal/config"
	"github.com/wolfman30/leadsync/internal/groups"
	"github.com/wolfman30/leadsync/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; group cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildGroupCache returns the Redis-backed group cache, or a nil interface
// when Redis is not configured.
func BuildGroupCache(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) groups.Cache {
	if client == nil || cfg == nil {
		return nil
	}
	return groups.NewRedisCache(client, cfg.GroupCacheTTL, logger)
}
