package subscription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	apperrors "github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type fetcherFunc func(ctx context.Context, userID string) (*domain.Record, error)

func (f fetcherFunc) Fetch(ctx context.Context, userID string) (*domain.Record, error) {
	return f(ctx, userID)
}

type mapCache struct {
	mu      sync.Mutex
	records map[string]domain.Record
}

func newMapCache() *mapCache {
	return &mapCache{records: make(map[string]domain.Record)}
}

func (c *mapCache) Get(_ context.Context, userID string) (*domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *mapCache) Set(_ context.Context, userID string, rec domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[userID] = rec
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, userID)
	return nil
}

func (c *mapCache) has(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[userID]
	return ok
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *countingObserver) ObserveFetch(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

func (o *countingObserver) count(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}

func plan(name string) *domain.Record {
	return &domain.Record{Subscribed: true, PlanName: &name}
}

func staticFetcher(rec *domain.Record) fetcherFunc {
	return func(context.Context, string) (*domain.Record, error) {
		r := *rec
		return &r, nil
	}
}

func awaitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ===== TestResolver_Resolve =====

func TestResolver_NoIdentity(t *testing.T) {
	r := NewResolver(staticFetcher(plan("Pro")), nil, nil, logger.Nop())

	snap := r.Resolve(context.Background())
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.Record)
	assert.Empty(t, snap.UserID)
}

func TestResolver_LoadingThenSettled(t *testing.T) {
	release := make(chan struct{})
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		<-release
		return plan("Pro"), nil
	})
	r := NewResolver(fetcher, nil, nil, logger.Nop())
	r.SetIdentity("user-a")

	snap := r.Resolve(context.Background())
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.Record)

	close(release)
	snap = r.Await(awaitCtx(t), "user-a")
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.Record)
	assert.Equal(t, "Pro", snap.Record.PlanNameOrEmpty())
	assert.NoError(t, snap.Err)
}

func TestResolver_AwaitTimesOutAsLoading(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		<-release
		return plan("Pro"), nil
	})
	r := NewResolver(fetcher, nil, nil, logger.Nop())
	r.SetIdentity("user-a")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap := r.Await(ctx, "user-a")
	assert.True(t, snap.IsLoading)
}

func TestResolver_FetchSurvivesCancelledRequest(t *testing.T) {
	var sawCancelled atomic.Bool
	fetcher := fetcherFunc(func(ctx context.Context, _ string) (*domain.Record, error) {
		if ctx.Err() != nil {
			sawCancelled.Store(true)
		}
		return plan("Start"), nil
	})
	r := NewResolver(fetcher, nil, nil, logger.Nop())
	r.SetIdentity("user-a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Resolve(ctx)
	r.Drain()

	assert.False(t, sawCancelled.Load())
	snap := r.Resolve(context.Background())
	require.NotNil(t, snap.Record)
	assert.True(t, snap.Record.Subscribed)
}

// ===== TestResolver_FailClosed =====

func TestResolver_FetchErrorFailsClosed(t *testing.T) {
	cache := newMapCache()
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	r := NewResolver(fetcher, cache, nil, logger.Nop())
	r.SetIdentity("user-a")

	snap := r.Await(awaitCtx(t), "user-a")

	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.Record)
	assert.True(t, snap.Record.Equal(domain.FailClosedRecord()))
	assert.ErrorIs(t, snap.Err, domain.ErrSubscriptionFetch)
	assert.True(t, apperrors.IsType(snap.Err, apperrors.ErrorTypeSubscriptionFetch))
	assert.NotContains(t, apperrors.GetAppError(snap.Err).Message, "connection refused")
	assert.False(t, cache.has("user-a"))
}

func TestResolver_RefreshRecoversAfterError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		if fail.Load() {
			return nil, errors.New("timeout")
		}
		return plan("Pro"), nil
	})
	r := NewResolver(fetcher, nil, nil, logger.Nop())
	r.SetIdentity("user-a")
	r.Await(awaitCtx(t), "user-a")

	fail.Store(false)
	require.NoError(t, r.Refresh(awaitCtx(t)))

	snap := r.Resolve(context.Background())
	assert.NoError(t, snap.Err)
	assert.True(t, snap.Record.Subscribed)
}

func TestResolver_NotFoundIsEmptyRecord(t *testing.T) {
	obs := &countingObserver{}
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		return nil, domain.ErrRecordNotFound
	})
	r := NewResolver(fetcher, nil, obs, logger.Nop())
	r.SetIdentity("ghost")

	snap := r.Await(awaitCtx(t), "ghost")
	require.NotNil(t, snap.Record)
	assert.False(t, snap.Record.Subscribed)
	assert.Nil(t, snap.Record.TrialEnd)
	assert.NoError(t, snap.Err)
	assert.Equal(t, 1, obs.count(OutcomeNotFound))
}

// ===== TestResolver_Staleness =====

// Identity switches from A to B while A's fetch is in flight; B resolves
// first, then A's result arrives and must be dropped.
func TestResolver_IdentitySwitchDiscardsStaleFetch(t *testing.T) {
	gates := map[string]chan *domain.Record{
		"user-a": make(chan *domain.Record),
		"user-b": make(chan *domain.Record),
	}
	fetcher := fetcherFunc(func(_ context.Context, userID string) (*domain.Record, error) {
		return <-gates[userID], nil
	})
	cache := newMapCache()
	obs := &countingObserver{}
	r := NewResolver(fetcher, cache, obs, logger.Nop())

	r.SetIdentity("user-a")
	assert.True(t, r.Resolve(context.Background()).IsLoading)

	r.SetIdentity("user-b")
	snap := r.Resolve(context.Background())
	assert.True(t, snap.IsLoading)
	assert.Equal(t, "user-b", snap.UserID)

	gates["user-b"] <- plan("Start")
	snap = r.Await(awaitCtx(t), "user-b")
	require.NotNil(t, snap.Record)
	assert.Equal(t, "Start", snap.Record.PlanNameOrEmpty())

	gates["user-a"] <- plan("Pro")
	r.Drain()

	snap = r.Resolve(context.Background())
	assert.Equal(t, "user-b", snap.UserID)
	assert.Equal(t, "Start", snap.Record.PlanNameOrEmpty())
	assert.False(t, cache.has("user-a"))
	assert.True(t, cache.has("user-b"))
	assert.Equal(t, 1, obs.count(OutcomeDiscarded))
}

func TestResolver_SignOutClearsRecord(t *testing.T) {
	r := NewResolver(staticFetcher(plan("Pro")), nil, nil, logger.Nop())
	r.SetIdentity("user-a")
	r.Await(awaitCtx(t), "user-a")

	r.SetIdentity("")
	snap := r.Resolve(context.Background())
	assert.Nil(t, snap.Record)
	assert.False(t, snap.IsLoading)
}

func TestResolver_RefreshKeepsLastKnownRecord(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		if calls.Add(1) == 1 {
			return plan("Start"), nil
		}
		<-release
		return plan("Pro"), nil
	})
	r := NewResolver(fetcher, nil, nil, logger.Nop())
	r.SetIdentity("user-a")
	r.Await(awaitCtx(t), "user-a")

	done := make(chan error, 1)
	go func() { done <- r.Refresh(context.Background()) }()

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	snap := r.Resolve(context.Background())
	assert.False(t, snap.IsLoading)
	assert.True(t, snap.Refreshing)
	assert.Equal(t, "Start", snap.Record.PlanNameOrEmpty())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "Pro", r.Resolve(context.Background()).Record.PlanNameOrEmpty())
}

// ===== TestResolver_Cache =====

func TestResolver_UsesCacheBeforeFetching(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		calls.Add(1)
		return plan("Pro"), nil
	})
	cache := newMapCache()
	require.NoError(t, cache.Set(context.Background(), "user-a", *plan("Start")))

	r := NewResolver(fetcher, cache, nil, logger.Nop())
	r.SetIdentity("user-a")
	snap := r.Await(awaitCtx(t), "user-a")

	assert.Equal(t, "Start", snap.Record.PlanNameOrEmpty())
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, r.Refresh(awaitCtx(t)))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Pro", r.Resolve(context.Background()).Record.PlanNameOrEmpty())

	cached, err := cache.Get(context.Background(), "user-a")
	require.NoError(t, err)
	assert.Equal(t, "Pro", cached.PlanNameOrEmpty())
}

func TestResolver_RefreshWithoutIdentity(t *testing.T) {
	r := NewResolver(staticFetcher(plan("Pro")), nil, nil, logger.Nop())
	assert.NoError(t, r.Refresh(context.Background()))
}

// ===== TestResolver_ExpectedUser =====

// A request for user A that is still waiting when the scope moves to user B
// must come back loading for A, never with B's record.
func TestResolver_AwaitNeverReturnsAnotherUsersRecord(t *testing.T) {
	gates := map[string]chan *domain.Record{
		"user-a": make(chan *domain.Record),
		"user-b": make(chan *domain.Record, 1),
	}
	fetcher := fetcherFunc(func(_ context.Context, userID string) (*domain.Record, error) {
		return <-gates[userID], nil
	})
	r := NewResolver(fetcher, nil, nil, logger.Nop())
	r.SetIdentity("user-a")

	result := make(chan Snapshot, 1)
	go func() { result <- r.Await(awaitCtx(t), "user-a") }()
	require.Eventually(t, func() bool { return r.Resolve(context.Background()).Refreshing }, time.Second, time.Millisecond)

	gates["user-b"] <- plan("Pro")
	r.SetIdentity("user-b")
	require.NotNil(t, r.Await(awaitCtx(t), "user-b").Record)

	gates["user-a"] <- plan("Start")
	snap := <-result
	assert.Equal(t, "user-a", snap.UserID)
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.Record)
	r.Drain()
}

func TestResolver_AwaitForInactiveUserIsLoading(t *testing.T) {
	r := NewResolver(staticFetcher(plan("Pro")), nil, nil, logger.Nop())
	r.SetIdentity("user-b")

	snap := r.Await(awaitCtx(t), "user-a")

	assert.Equal(t, "user-a", snap.UserID)
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.Record)
}

// ===== TestResolver_ForcedRefresh =====

// gatedRepo captures the stored record when a read starts and holds the
// first read until released.
type gatedRepo struct {
	mu      sync.Mutex
	current domain.Record
	calls   int
	gate    chan struct{}
}

func (r *gatedRepo) FindByUserID(context.Context, string) (*domain.Record, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	rec := r.current
	r.mu.Unlock()
	if first {
		<-r.gate
	}
	return &rec, nil
}

func (r *gatedRepo) set(rec domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = rec
}

func (r *gatedRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestResolver_RefreshDoesNotReuseEarlierRead(t *testing.T) {
	repo := &gatedRepo{gate: make(chan struct{})}
	cache := newMapCache()
	r := NewResolver(NewSingleFlightFetcher(repo, logger.Nop()), cache, nil, logger.Nop())
	r.SetIdentity("user-a")

	// A plain fetch reads the unsubscribed record and stalls.
	r.Resolve(context.Background())
	require.Eventually(t, func() bool { return repo.callCount() == 1 }, time.Second, time.Millisecond)

	// Checkout completes, then the caller forces a refresh.
	repo.set(*plan("Pro"))
	done := make(chan error, 1)
	go func() { done <- r.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return repo.callCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, <-done)
	close(repo.gate)
	r.Drain()

	snap := r.Resolve(context.Background())
	require.NotNil(t, snap.Record)
	assert.True(t, snap.Record.Subscribed)
	assert.Equal(t, "Pro", snap.Record.PlanNameOrEmpty())

	cached, err := cache.Get(context.Background(), "user-a")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.True(t, cached.Subscribed)
}
