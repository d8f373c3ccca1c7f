package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-inc/vendora/internal/application/subscription"
	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/domain/organization"
	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/infrastructure/auth"
	"github.com/vendora-inc/vendora/internal/shared/config"
	"github.com/vendora-inc/vendora/internal/shared/constants"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

const testSecret = "access-context-test-secret"

type fetcherFunc func(ctx context.Context, userID string) (*domain.Record, error)

func (f fetcherFunc) Fetch(ctx context.Context, userID string) (*domain.Record, error) {
	return f(ctx, userID)
}

type membershipTable struct {
	roles map[string]identity.OrgRole
	err   error
}

func (m membershipTable) FindMembership(_ context.Context, orgID, userID string) (*organization.Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	role, ok := m.roles[orgID+"/"+userID]
	if !ok {
		return nil, organization.ErrMembershipNotFound
	}
	return &organization.Membership{OrgID: orgID, UserID: userID, Role: role}, nil
}

type accessFixture struct {
	tokens   *auth.JWTService
	registry *subscription.ScopeRegistry
	fetches  *atomic.Int32
	engine   *gin.Engine
	captured *AccessContext
}

func newAccessFixture(t *testing.T, members membershipTable, fetch fetcherFunc, await time.Duration) *accessFixture {
	t.Helper()

	fetches := &atomic.Int32{}
	counted := fetcherFunc(func(ctx context.Context, userID string) (*domain.Record, error) {
		fetches.Add(1)
		return fetch(ctx, userID)
	})
	registry, err := subscription.NewScopeRegistry(16, counted, nil, nil, logger.Nop())
	require.NoError(t, err)

	tokens := auth.NewJWTService(testSecret, "vendora-test")
	provider := auth.NewIdentityProvider(tokens, members, logger.Nop())
	mw := NewAccessContextMiddleware(provider, registry, config.SessionCookieConfig{
		Name:     "vendora_sid",
		Path:     "/",
		MaxAgeHr: 24,
	}, await, logger.Nop())

	f := &accessFixture{tokens: tokens, registry: registry, fetches: fetches}
	f.engine = gin.New()
	f.engine.Use(mw.Handle())
	f.engine.GET("/access", func(c *gin.Context) {
		f.captured, _ = GetAccessContext(c)
		c.Status(http.StatusNoContent)
	})
	return f
}

func (f *accessFixture) token(t *testing.T, subject auth.TokenSubject) string {
	t.Helper()
	token, err := f.tokens.Issue(subject, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *accessFixture) do(token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/access", nil)
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	f.engine.ServeHTTP(w, req)
	return w
}

func trialFetcher(ctx context.Context, userID string) (*domain.Record, error) {
	rec := domain.NewTrialRecord(time.Now())
	return &rec, nil
}

func TestAccessContext_NoTokenIsAnonymous(t *testing.T) {
	f := newAccessFixture(t, membershipTable{}, trialFetcher, time.Second)

	w := f.do("")

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, f.captured)
	assert.False(t, f.captured.Identity.IsAuthenticated)
	assert.Nil(t, f.captured.Scope)
	assert.Nil(t, f.captured.Subscription.Record)
	assert.Empty(t, w.Result().Cookies())
	assert.Zero(t, f.registry.Len())
}

func TestAccessContext_InvalidTokenIsAnonymous(t *testing.T) {
	f := newAccessFixture(t, membershipTable{}, trialFetcher, time.Second)

	f.do("not-a-jwt")

	require.NotNil(t, f.captured)
	assert.False(t, f.captured.Identity.IsAuthenticated)
	assert.Nil(t, f.captured.Scope)
	assert.Zero(t, f.fetches.Load())
}

func TestAccessContext_ResolvesIdentityAndSubscription(t *testing.T) {
	members := membershipTable{roles: map[string]identity.OrgRole{"org-1/user-1": identity.RoleKitchen}}
	f := newAccessFixture(t, members, trialFetcher, time.Second)

	token := f.token(t, auth.TokenSubject{UserID: "user-1", Email: "ana@example.com", OrgID: "org-1", SessionID: "sess-1"})
	f.do(token)

	ac := f.captured
	require.NotNil(t, ac)
	assert.Equal(t, "sess-1", ac.SessionID)
	assert.True(t, ac.Identity.IsAuthenticated)
	assert.True(t, ac.Identity.HasRole(identity.RoleKitchen))
	assert.False(t, ac.Subscription.IsLoading)
	require.NotNil(t, ac.Subscription.Record)
	assert.NotNil(t, ac.Subscription.Record.TrialEnd)
	assert.Same(t, f.registry.ScopeFor("sess-1", "user-1"), ac.Scope)

	// A second request in the same session reuses the settled record.
	f.do(token)
	assert.Equal(t, int32(1), f.fetches.Load())
}

func TestAccessContext_MintsSessionCookie(t *testing.T) {
	f := newAccessFixture(t, membershipTable{}, trialFetcher, time.Second)
	token := f.token(t, auth.TokenSubject{UserID: "user-1"})

	w := f.do(token)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "vendora_sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, f.captured.SessionID)
	assert.Nil(t, f.captured.Identity.OrgRole)

	w = f.do(token, cookies[0])
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, cookies[0].Value, f.captured.SessionID)
	assert.Equal(t, 1, f.registry.Len())
}

func TestAccessContext_MembershipFailureDropsToAnonymous(t *testing.T) {
	f := newAccessFixture(t, membershipTable{err: errors.New("db down")}, trialFetcher, time.Second)
	token := f.token(t, auth.TokenSubject{UserID: "user-1", OrgID: "org-1", SessionID: "sess-1"})

	f.do(token)

	require.NotNil(t, f.captured)
	assert.False(t, f.captured.Identity.IsAuthenticated)
	assert.Nil(t, f.captured.Subscription.Record)
	assert.False(t, f.captured.Subscription.IsLoading)
}

func TestAccessContext_SlowFetchStaysLoading(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	slow := func(ctx context.Context, userID string) (*domain.Record, error) {
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
		return trialFetcher(ctx, userID)
	}
	f := newAccessFixture(t, membershipTable{}, slow, 20*time.Millisecond)
	token := f.token(t, auth.TokenSubject{UserID: "user-1", SessionID: "sess-1"})

	f.do(token)

	require.NotNil(t, f.captured)
	assert.True(t, f.captured.Identity.IsAuthenticated)
	assert.True(t, f.captured.Subscription.IsLoading)
	assert.Nil(t, f.captured.Subscription.Record)
}

func TestAccessContext_FetchErrorFailsClosed(t *testing.T) {
	failing := func(context.Context, string) (*domain.Record, error) {
		return nil, errors.New("connection refused")
	}
	f := newAccessFixture(t, membershipTable{}, failing, time.Second)
	token := f.token(t, auth.TokenSubject{UserID: "user-1", SessionID: "sess-1"})

	f.do(token)

	snap := f.captured.Subscription
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.Record)
	assert.False(t, snap.Record.Subscribed)
	assert.Error(t, snap.Err)
}

// Two accounts used in turn from one browser share the session cookie. The
// first request is still waiting on its fetch when the second arrives.
func TestAccessContext_AccountSwitchKeepsSnapshotsApart(t *testing.T) {
	gates := map[string]chan *domain.Record{
		"user-a": make(chan *domain.Record),
		"user-b": make(chan *domain.Record, 1),
	}
	started := make(chan string, 2)
	fetch := func(_ context.Context, userID string) (*domain.Record, error) {
		started <- userID
		return <-gates[userID], nil
	}
	f := newAccessFixture(t, membershipTable{}, fetch, 2*time.Second)

	type seen struct {
		identity string
		snapshot string
		plan     string
		loading  bool
	}
	results := make(chan seen, 2)
	f.engine.GET("/whoami", func(c *gin.Context) {
		ac, _ := GetAccessContext(c)
		s := seen{
			identity: ac.Identity.UserID,
			snapshot: ac.Subscription.UserID,
			loading:  ac.Subscription.IsLoading,
		}
		if ac.Subscription.Record != nil {
			s.plan = ac.Subscription.Record.PlanNameOrEmpty()
		}
		results <- s
		c.Status(http.StatusNoContent)
	})

	cookie := &http.Cookie{Name: "vendora_sid", Value: "shared-browser"}
	request := func(token string) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
		req.AddCookie(cookie)
		f.engine.ServeHTTP(w, req)
	}
	tokenA := f.token(t, auth.TokenSubject{UserID: "user-a"})
	tokenB := f.token(t, auth.TokenSubject{UserID: "user-b"})

	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		request(tokenA)
	}()
	require.Equal(t, "user-a", <-started)

	pro, start := "Plano Pro Mensal", "Plano Start"
	gates["user-b"] <- &domain.Record{Subscribed: true, PlanName: &pro}
	request(tokenB)
	b := <-results
	assert.Equal(t, "user-b", b.identity)
	assert.Equal(t, "user-b", b.snapshot)
	assert.Equal(t, pro, b.plan)

	gates["user-a"] <- &domain.Record{Subscribed: true, PlanName: &start}
	<-doneA
	a := <-results
	assert.Equal(t, "user-a", a.identity)
	assert.Equal(t, "user-a", a.snapshot)
	assert.False(t, a.loading)
	assert.Equal(t, start, a.plan)
}

