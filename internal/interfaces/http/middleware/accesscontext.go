package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vendora-inc/vendora/internal/application/subscription"
	"github.com/vendora-inc/vendora/internal/domain/access"
	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/infrastructure/auth"
	"github.com/vendora-inc/vendora/internal/shared/config"
	"github.com/vendora-inc/vendora/internal/shared/constants"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// IdentityResolver verifies a bearer token and resolves the caller behind it.
type IdentityResolver interface {
	Authenticate(token string) (*auth.Claims, error)
	Resolve(ctx context.Context, claims *auth.Claims) (identity.Identity, error)
}

// ScopeProvider hands out the subscription resolver of one user in a session.
type ScopeProvider interface {
	ScopeFor(sessionID, userID string) *subscription.Resolver
}

// AccessContext is the per-request snapshot pair every guard decides on.
type AccessContext struct {
	SessionID    string
	Identity     identity.Identity
	Subscription subscription.Snapshot
	// Scope is nil for anonymous callers.
	Scope *subscription.Resolver
}

// View is the subscription snapshot as the decision functions consume it.
func (a *AccessContext) View() access.SubscriptionView {
	return access.SubscriptionView{
		Record:    a.Subscription.Record,
		IsLoading: a.Subscription.IsLoading,
	}
}

// AccessContextMiddleware resolves identity and subscription concurrently and
// stores one consistent AccessContext on the request.
type AccessContextMiddleware struct {
	identities   IdentityResolver
	scopes       ScopeProvider
	session      config.SessionCookieConfig
	awaitTimeout time.Duration
	logger       logger.Interface
}

func NewAccessContextMiddleware(
	identities IdentityResolver,
	scopes ScopeProvider,
	session config.SessionCookieConfig,
	awaitTimeout time.Duration,
	logger logger.Interface,
) *AccessContextMiddleware {
	return &AccessContextMiddleware{
		identities:   identities,
		scopes:       scopes,
		session:      session,
		awaitTimeout: awaitTimeout,
		logger:       logger,
	}
}

func (m *AccessContextMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := m.resolve(c)
		c.Set(constants.ContextKeyAccess, ac)
		if ac.Identity.IsAuthenticated {
			c.Set(constants.ContextKeyUserID, ac.Identity.UserID)
		}
		c.Next()
	}
}

func (m *AccessContextMiddleware) resolve(c *gin.Context) *AccessContext {
	ac := &AccessContext{Identity: identity.Anonymous()}

	claims, err := m.identities.Authenticate(bearerToken(c))
	if err != nil {
		m.logger.Warnw("bearer token rejected", "error", err, "path", c.Request.URL.Path)
	}
	if claims == nil {
		return ac
	}

	ac.SessionID = m.sessionID(c, claims)
	userID := claims.UserID()
	ac.Scope = m.scopes.ScopeFor(ac.SessionID, userID)

	var (
		id   identity.Identity
		snap subscription.Snapshot
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		resolved, err := m.identities.Resolve(ctx, claims)
		if err != nil {
			m.logger.Warnw("identity resolution failed",
				"user_id", claims.UserID(),
				"error", err,
			)
			resolved = identity.Anonymous()
		}
		id = resolved
		return nil
	})
	g.Go(func() error {
		awaitCtx, cancel := context.WithTimeout(ctx, m.awaitTimeout)
		defer cancel()
		snap = ac.Scope.Await(awaitCtx, userID)
		return nil
	})
	_ = g.Wait()

	ac.Identity = id
	ac.Subscription = snap
	switch {
	case !id.IsAuthenticated:
		ac.Subscription = subscription.Snapshot{}
	case snap.UserID != id.UserID:
		m.logger.Errorw("subscription snapshot belongs to another user, treating as loading",
			"user_id", id.UserID,
			"snapshot_user_id", snap.UserID,
		)
		ac.Subscription = subscription.Snapshot{UserID: id.UserID, IsLoading: true}
	}
	return ac
}

// sessionID prefers the token's sid claim, then the session cookie, and
// mints a new cookie otherwise.
func (m *AccessContextMiddleware) sessionID(c *gin.Context, claims *auth.Claims) string {
	if claims.SessionID != "" {
		return claims.SessionID
	}
	if sid, err := c.Cookie(m.session.Name); err == nil && sid != "" {
		return sid
	}

	sid := uuid.NewString()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.session.Name,
		Value:    sid,
		Path:     m.session.Path,
		Domain:   m.session.Domain,
		MaxAge:   m.session.MaxAgeHr * 3600,
		Secure:   m.session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader(constants.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetAccessContext returns the context stored by AccessContextMiddleware.
func GetAccessContext(c *gin.Context) (*AccessContext, bool) {
	v, ok := c.Get(constants.ContextKeyAccess)
	if !ok {
		return nil, false
	}
	ac, ok := v.(*AccessContext)
	return ac, ok
}
