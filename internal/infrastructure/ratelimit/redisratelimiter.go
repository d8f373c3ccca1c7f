package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding-window limiter shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "vendora:ratelimit",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limits Limits) (bool, error) {
	now := l.now()
	for _, w := range limits.windows() {
		if w.limit <= 0 {
			continue
		}
		allowed, err := l.checkWindow(ctx, key, w, now)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

// checkWindow records the attempt and counts the attempts already in the window.
func (l *RedisLimiter) checkWindow(ctx context.Context, key string, w window, now time.Time) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, key, w.duration)
	windowStart := now.Add(-w.duration).UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, redisKey, w.duration+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}
	return zcard.Val() < int64(w.limit), nil
}
