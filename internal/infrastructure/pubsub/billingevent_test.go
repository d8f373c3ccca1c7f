package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-inc/vendora/internal/shared/logger"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type eventRecorder struct {
	mu     sync.Mutex
	events []BillingChangeEvent
}

func (r *eventRecorder) handle(_ context.Context, e BillingChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) userIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.events))
	for _, e := range r.events {
		ids = append(ids, e.UserID)
	}
	return ids
}

func TestRedisBillingEventBus_PublishSubscribe(t *testing.T) {
	client := setupTestRedis(t)
	bus := NewRedisBillingEventBus(client, "", logger.Nop())
	rec := &eventRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- bus.Subscribe(ctx, rec.handle, func() { close(ready) })
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not confirmed")
	}

	require.NoError(t, bus.Publish(ctx, "user-1", "checkout.completed"))
	require.NoError(t, client.Publish(ctx, DefaultBillingChannel, `not json`).Err())
	require.NoError(t, client.Publish(ctx, DefaultBillingChannel, `{"reason":"no user"}`).Err())
	require.NoError(t, bus.Publish(ctx, "user-2", "subscription.deleted"))

	require.Eventually(t, func() bool { return len(rec.userIDs()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, rec.userIDs())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestRedisBillingEventBus_RunStopsOnCancel(t *testing.T) {
	client := setupTestRedis(t)
	bus := NewRedisBillingEventBus(client, "custom:channel", logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		bus.Run(ctx, func(context.Context, BillingChangeEvent) {})
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
