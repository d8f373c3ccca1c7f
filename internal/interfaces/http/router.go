package http

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
	"github.com/vendora-inc/vendora/internal/interfaces/http/routes"

	_ "github.com/vendora-inc/vendora/docs"
)

// SetupRoutes configures all HTTP routes.
func (c *Container) SetupRoutes() {
	cfg := c.cfg
	engine := c.engine

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(c.log.Named("http")))
	engine.Use(middleware.Recovery(c.log.Named("http.recovery")))
	engine.Use(middleware.ErrorHandler(c.log.Named("http.errors"), !cfg.Server.IsRelease()))
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.SecurityHeaders())

	engine.GET("/healthz", c.hdlrs.healthHandler.Check)
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(c.metrics.Handler()))
	}
	if !cfg.Server.IsRelease() {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group("/api")
	api.Use(c.accessContext.Handle())

	routes.SetupAccessRoutes(api, &routes.AccessRouteConfig{
		AccessHandler:      c.hdlrs.accessHandler,
		EntitlementHandler: c.hdlrs.entitlementHandler,
		RouteGuard:         c.routeGuard,
		FeatureGuard:       c.featureGuard,
	})
	routes.SetupBillingRoutes(api, &routes.BillingRouteConfig{
		BillingHandler:      c.hdlrs.billingHandler,
		SubscriptionHandler: c.hdlrs.subscriptionHandler,
		RouteGuard:          c.routeGuard,
		RateLimit:           c.rateLimit,
	})
}
