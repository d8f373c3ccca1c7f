package subscription

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type switchableRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Record
	calls   map[string]int
}

func (r *switchableRepo) FindByUserID(_ context.Context, userID string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[userID]++
	rec, ok := r.records[userID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *switchableRepo) set(userID string, rec *domain.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = rec
}

func newRegistry(t *testing.T, repo domain.Repository, cache RecordCache) *ScopeRegistry {
	t.Helper()
	reg, err := NewScopeRegistry(8, NewSingleFlightFetcher(repo, logger.Nop()), cache, nil, logger.Nop())
	require.NoError(t, err)
	return reg
}

func TestScopeRegistry_ScopeIsStablePerSession(t *testing.T) {
	reg := newRegistry(t, &switchableRepo{records: map[string]*domain.Record{}, calls: map[string]int{}}, nil)

	a := reg.Scope("session-1")
	assert.Same(t, a, reg.Scope("session-1"))
	assert.NotSame(t, a, reg.Scope("session-2"))
	assert.Equal(t, 2, reg.Len())
}

func TestScopeRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	reg, err := NewScopeRegistry(2, fetcherFunc(func(context.Context, string) (*domain.Record, error) {
		return &domain.Record{}, nil
	}), nil, nil, logger.Nop())
	require.NoError(t, err)

	first := reg.Scope("s1")
	reg.Scope("s2")
	reg.Scope("s3")

	assert.Equal(t, 2, reg.Len())
	assert.NotSame(t, first, reg.Scope("s1"))
}

func TestScopeRegistry_RefreshUser(t *testing.T) {
	repo := &switchableRepo{
		records: map[string]*domain.Record{
			"user-a": {},
			"user-b": plan("Start"),
		},
		calls: map[string]int{},
	}
	cache := newMapCache()
	reg := newRegistry(t, repo, cache)
	ctx := awaitCtx(t)

	s1 := reg.Scope("s1")
	s1.SetIdentity("user-a")
	s2 := reg.Scope("s2")
	s2.SetIdentity("user-a")
	s3 := reg.Scope("s3")
	s3.SetIdentity("user-b")
	for _, s := range []*Resolver{s1, s2, s3} {
		s.Await(ctx, s.ActiveUserID())
	}
	assert.False(t, s1.Resolve(ctx).Record.Subscribed)

	repo.set("user-a", plan("Pro"))
	n, err := reg.RefreshUser(ctx, "user-a")
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, "Pro", s1.Resolve(ctx).Record.PlanNameOrEmpty())
	assert.Equal(t, "Pro", s2.Resolve(ctx).Record.PlanNameOrEmpty())
	assert.Equal(t, "Start", s3.Resolve(ctx).Record.PlanNameOrEmpty())

	cached, err := cache.Get(ctx, "user-a")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Pro", cached.PlanNameOrEmpty())
}

func TestScopeRegistry_RefreshAllSkipsSignedOutScopes(t *testing.T) {
	repo := &switchableRepo{
		records: map[string]*domain.Record{"user-a": plan("Start")},
		calls:   map[string]int{},
	}
	reg := newRegistry(t, repo, nil)
	ctx := awaitCtx(t)

	reg.Scope("s1").SetIdentity("user-a")
	reg.Scope("anonymous")

	n, err := reg.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Start", reg.Scope("s1").Resolve(ctx).Record.PlanNameOrEmpty())
}

func TestScopeRegistry_ScopeForSeparatesUsersOfOneSession(t *testing.T) {
	reg := newRegistry(t, &switchableRepo{records: map[string]*domain.Record{}, calls: map[string]int{}}, nil)

	a := reg.ScopeFor("browser-1", "user-a")
	b := reg.ScopeFor("browser-1", "user-b")

	assert.NotSame(t, a, b)
	assert.Same(t, a, reg.ScopeFor("browser-1", "user-a"))
	assert.Equal(t, "user-a", a.ActiveUserID())
	assert.Equal(t, "user-b", b.ActiveUserID())
}
