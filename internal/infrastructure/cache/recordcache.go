package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

const (
	recordKeyPrefix      = "vendora:subscription:record:"
	fieldSubscribed      = "subscribed"
	fieldPlanName        = "plan_name"
	fieldSubscriptionEnd = "subscription_end"
	fieldTrialEnd        = "trial_end"
)

// RedisRecordCache stores subscription records as Redis hashes. Times are
// kept in unix milliseconds; absent fields mean nil.
type RedisRecordCache struct {
	client *redis.Client
	ttl    time.Duration
	jitter time.Duration
	logger logger.Interface
}

// NewRedisRecordCache creates the cache. Each entry lives ttl plus up to 25%
// random jitter so entries written together do not expire together.
func NewRedisRecordCache(client *redis.Client, ttl time.Duration, logger logger.Interface) *RedisRecordCache {
	return &RedisRecordCache{
		client: client,
		ttl:    ttl,
		jitter: ttl / 4,
		logger: logger,
	}
}

func (c *RedisRecordCache) key(userID string) string {
	return recordKeyPrefix + userID
}

func (c *RedisRecordCache) Get(ctx context.Context, userID string) (*subscription.Record, error) {
	result, err := c.client.HGetAll(ctx, c.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription record from cache: %w", err)
	}
	if len(result) == 0 {
		return nil, nil
	}

	rec := &subscription.Record{Subscribed: result[fieldSubscribed] == "1"}
	if name, ok := result[fieldPlanName]; ok {
		rec.PlanName = &name
	}
	if rec.SubscriptionEnd, err = parseMillis(result, fieldSubscriptionEnd); err != nil {
		return nil, err
	}
	if rec.TrialEnd, err = parseMillis(result, fieldTrialEnd); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *RedisRecordCache) Set(ctx context.Context, userID string, rec subscription.Record) error {
	key := c.key(userID)
	fields := map[string]any{
		fieldSubscribed: boolToInt(rec.Subscribed),
	}
	if rec.PlanName != nil {
		fields[fieldPlanName] = *rec.PlanName
	}
	if rec.SubscriptionEnd != nil {
		fields[fieldSubscriptionEnd] = rec.SubscriptionEnd.UnixMilli()
	}
	if rec.TrialEnd != nil {
		fields[fieldTrialEnd] = rec.TrialEnd.UnixMilli()
	}

	// Replace the hash wholesale so fields cleared upstream do not linger.
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.ttlWithJitter())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set subscription record in cache: %w", err)
	}

	c.logger.Debugw("subscription record cached", "user_id", userID, "subscribed", rec.Subscribed)
	return nil
}

func (c *RedisRecordCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate subscription record cache: %w", err)
	}
	c.logger.Debugw("subscription record cache invalidated", "user_id", userID)
	return nil
}

func (c *RedisRecordCache) ttlWithJitter() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int64N(int64(c.jitter)))
}

func parseMillis(fields map[string]string, name string) (*time.Time, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached %s %q: %w", name, raw, err)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
