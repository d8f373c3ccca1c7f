package http

import (
	"context"
	"fmt"

	"github.com/vendora-inc/vendora/internal/application/subscription"
	"github.com/vendora-inc/vendora/internal/infrastructure/auth"
	"github.com/vendora-inc/vendora/internal/infrastructure/cache"
	"github.com/vendora-inc/vendora/internal/infrastructure/metrics"
	"github.com/vendora-inc/vendora/internal/infrastructure/permission"
	"github.com/vendora-inc/vendora/internal/infrastructure/pubsub"
	"github.com/vendora-inc/vendora/internal/infrastructure/ratelimit"
	"github.com/vendora-inc/vendora/internal/infrastructure/scheduler"
	"github.com/vendora-inc/vendora/internal/infrastructure/template"
	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
)

// ============================================================
// Section 1: Infrastructure - repositories, caches, resolver registry
// ============================================================

func (c *Container) initInfrastructure() error {
	cfg := c.cfg
	log := c.log

	c.repos = newRepositories(c.db, log)
	c.metrics = metrics.New()

	recordCache, err := c.newRecordCache()
	if err != nil {
		return err
	}

	fetcher := subscription.NewSingleFlightFetcher(c.repos.subscriberRepo, log.Named("subscription.fetcher"))
	c.scopes, err = subscription.NewScopeRegistry(
		cfg.Subscription.ScopeCapacity,
		fetcher,
		recordCache,
		c.metrics,
		log.Named("subscription.resolver"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scope registry: %w", err)
	}
	c.metrics.RegisterScopeGauge(c.scopes.Len)
	return nil
}

func (c *Container) newRecordCache() (subscription.RecordCache, error) {
	sc := c.cfg.Subscription
	switch sc.CacheDriver {
	case "redis":
		if c.redis == nil {
			return nil, fmt.Errorf("redis record cache selected but no redis client configured")
		}
		c.log.Infow("using redis subscription record cache", "ttl", sc.CacheTTL)
		return cache.NewRedisRecordCache(c.redis, sc.CacheTTL, c.log), nil
	default:
		c.log.Infow("using in-memory subscription record cache", "size", sc.CacheSize, "ttl", sc.CacheTTL)
		return cache.NewMemoryRecordCache(sc.CacheSize, sc.CacheTTL), nil
	}
}

// ============================================================
// Section 2: Access - identity, policies, guards
// ============================================================

func (c *Container) initAccess() error {
	cfg := c.cfg
	log := c.log

	c.jwtSvc = auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer)
	c.identities = auth.NewIdentityProvider(c.jwtSvc, c.repos.membershipRepo, log)

	catalog, err := permission.LoadCatalog(cfg.Guard.PolicyFile)
	if err != nil {
		return err
	}
	c.catalog = catalog

	if cfg.Guard.PersistPolicies {
		c.roles, err = permission.NewPersistentRoleAuthorizer(c.db, catalog, log)
	} else {
		c.roles, err = permission.NewRoleAuthorizer(catalog, log)
	}
	if err != nil {
		return err
	}

	prompts, err := template.NewPromptRenderer(cfg.Guard.Prompts.Expired, cfg.Guard.Prompts.Upgrade, log)
	if err != nil {
		return err
	}

	opts := middleware.GuardOptions{
		SignInURL:  cfg.Auth.SignInURL,
		RetryAfter: cfg.Guard.RetryAfter,
	}
	c.accessContext = middleware.NewAccessContextMiddleware(
		c.identities,
		c.scopes,
		cfg.Auth.Session,
		cfg.Guard.AwaitTimeout,
		log.Named("middleware.access"),
	)
	c.routeGuard = middleware.NewRouteGuard(catalog, c.roles, prompts, c.metrics, opts, log.Named("middleware.route_guard"))
	c.featureGuard = middleware.NewFeatureGuard(catalog, prompts, c.metrics, opts, log.Named("middleware.feature_guard"))

	limiter, err := c.newRateLimiter()
	if err != nil {
		return err
	}
	c.rateLimit = middleware.NewRateLimitMiddleware(limiter, ratelimit.Limits{
		PerMinute: cfg.Billing.RateLimit.PerMinute,
		PerHour:   cfg.Billing.RateLimit.PerHour,
	}, log.Named("middleware.ratelimit"))

	log.Infow("access policies loaded",
		"file", cfg.Guard.PolicyFile,
		"routes", len(catalog.RouteKeys()),
		"persisted", cfg.Guard.PersistPolicies,
	)
	return nil
}

// newRateLimiter shares limits across instances through Redis when a client
// is available.
func (c *Container) newRateLimiter() (ratelimit.Limiter, error) {
	if c.redis != nil {
		return ratelimit.NewRedisLimiter(c.redis), nil
	}
	return ratelimit.NewMemoryLimiter(c.cfg.Subscription.CacheSize)
}

// ============================================================
// Section 5: Scheduled refresh and billing events
// ============================================================

func (c *Container) initBackground() error {
	cfg := c.cfg
	log := c.log

	var err error
	c.schedulerManager, err = scheduler.NewSchedulerManager(log.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if cfg.Subscription.RefreshInterval > 0 {
		job := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
			n, err := c.scopes.RefreshAll(ctx)
			c.metrics.ObserveRefresh("scheduled", err)
			return n, err
		})
		if err := c.schedulerManager.RegisterSubscriptionRefreshJob(job, cfg.Subscription.RefreshInterval); err != nil {
			return fmt.Errorf("failed to register subscription refresh job: %w", err)
		}
	}

	if cfg.Subscription.EventsEnabled {
		if c.redis == nil {
			return fmt.Errorf("billing events enabled but no redis client configured")
		}
		c.billingEvents = pubsub.NewRedisBillingEventBus(c.redis, cfg.Subscription.EventChannel, log)
	}
	return nil
}

// handleBillingEvent refreshes every live scope of the user named by the event.
func (c *Container) handleBillingEvent(ctx context.Context, event pubsub.BillingChangeEvent) {
	n, err := c.scopes.RefreshUser(ctx, event.UserID)
	c.metrics.ObserveRefresh("event", err)
	if err != nil {
		c.log.Warnw("billing event refresh failed",
			"user_id", event.UserID,
			"reason", event.Reason,
			"error", err,
		)
		return
	}
	c.log.Infow("billing event applied",
		"user_id", event.UserID,
		"reason", event.Reason,
		"scopes", n,
	)
}
