package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendora-inc/vendora/internal/shared/config"
)

// NewRedisClient connects and pings. The caller owns the client.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetAddr(), err)
	}
	return client, nil
}

// RedisRequired reports whether the subscription settings need a Redis connection.
func RedisRequired(cfg *config.SubscriptionConfig) bool {
	return cfg.CacheDriver == "redis" || cfg.EventsEnabled
}
