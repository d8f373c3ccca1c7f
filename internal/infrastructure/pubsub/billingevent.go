// Package pubsub carries billing events between the billing-event pipeline
// and every running instance.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vendora-inc/vendora/internal/shared/goroutine"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// DefaultBillingChannel is the Redis channel billing changes are announced on.
const DefaultBillingChannel = "vendora:subscription:change"

// BillingChangeEvent says that a user's subscription record changed in the store.
type BillingChangeEvent struct {
	UserID    string `json:"user_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// BillingEventHandler is called once per received event.
type BillingEventHandler func(ctx context.Context, event BillingChangeEvent)

// RedisBillingEventBus publishes and consumes BillingChangeEvents over Redis Pub/Sub.
type RedisBillingEventBus struct {
	client  *redis.Client
	channel string
	logger  logger.Interface
}

func NewRedisBillingEventBus(client *redis.Client, channel string, logger logger.Interface) *RedisBillingEventBus {
	if channel == "" {
		channel = DefaultBillingChannel
	}
	return &RedisBillingEventBus{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish announces a change for userID, retrying transient Redis errors.
func (b *RedisBillingEventBus) Publish(ctx context.Context, userID, reason string) error {
	data, err := json.Marshal(BillingChangeEvent{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal billing event: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (int64, error) {
		return b.client.Publish(ctx, b.channel, data).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		b.logger.Errorw("failed to publish billing event", "user_id", userID, "error", err)
		return fmt.Errorf("failed to publish billing event: %w", err)
	}

	b.logger.Debugw("billing event published", "user_id", userID, "reason", reason)
	return nil
}

// Subscribe consumes events until ctx is done or the connection drops.
// onReady runs once the subscription is confirmed.
func (b *RedisBillingEventBus) Subscribe(ctx context.Context, handler BillingEventHandler, onReady func()) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	b.logger.Infow("subscribed to billing events", "channel", b.channel)
	if onReady != nil {
		onReady()
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("billing event channel closed")
			}

			var event BillingChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || event.UserID == "" {
				b.logger.Warnw("ignoring malformed billing event", "payload", msg.Payload, "error", err)
				continue
			}

			// Handlers outlive the receive loop iteration; detach them from it.
			goroutine.SafeGo(b.logger, "billing-event-handler", func() {
				handler(context.WithoutCancel(ctx), event)
			})
		}
	}
}

// Run keeps a subscription alive, reconnecting with exponential backoff until
// ctx is cancelled.
func (b *RedisBillingEventBus) Run(ctx context.Context, handler BillingEventHandler) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second

	for {
		err := b.Subscribe(ctx, handler, bo.Reset)
		if ctx.Err() != nil {
			b.logger.Infow("billing event subscriber stopped")
			return
		}

		wait := bo.NextBackOff()
		b.logger.Warnw("billing event subscription lost, reconnecting", "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
