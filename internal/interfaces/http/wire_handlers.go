package http

import (
	"context"

	"github.com/vendora-inc/vendora/internal/interfaces/http/handlers"
)

// allHandlers holds all HTTP handler instances.
type allHandlers struct {
	healthHandler       *handlers.HealthHandler
	accessHandler       *handlers.AccessHandler
	entitlementHandler  *handlers.EntitlementHandler
	subscriptionHandler *handlers.SubscriptionHandler
	billingHandler      *handlers.BillingHandler
}

// ============================================================
// Section 4: Handlers
// ============================================================

func (c *Container) initHandlers() {
	log := c.log
	exposeDetails := !c.cfg.Server.IsRelease()

	checks := []handlers.HealthCheck{{
		Name: "database",
		Ping: func(ctx context.Context) error {
			sqlDB, err := c.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if c.redis != nil {
		checks = append(checks, handlers.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error {
				return c.redis.Ping(ctx).Err()
			},
		})
	}

	c.hdlrs = &allHandlers{
		healthHandler:       handlers.NewHealthHandler(log.Named("handler.health"), checks...),
		accessHandler:       handlers.NewAccessHandler(c.routeGuard, c.featureGuard),
		entitlementHandler:  handlers.NewEntitlementHandler(log.Named("handler.entitlement")),
		subscriptionHandler: handlers.NewSubscriptionHandler(exposeDetails, log.Named("handler.subscription")),
		billingHandler: handlers.NewBillingHandler(
			c.ucs.createCheckoutUC,
			c.ucs.createPortalUC,
			c.ucs.confirmUC,
			exposeDetails,
			log.Named("handler.billing"),
		),
	}
}
