// Package routes provides HTTP route configurations.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/interfaces/http/handlers"
	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
)

// AccessRouteConfig holds dependencies for guarded page and feature routes.
type AccessRouteConfig struct {
	AccessHandler      *handlers.AccessHandler
	EntitlementHandler *handlers.EntitlementHandler
	RouteGuard         *middleware.RouteGuard
	FeatureGuard       *middleware.FeatureGuard
}

// SetupAccessRoutes configures access state and guarded content routes.
// Routes: /api/access/state, /api/entitlements/me, /api/pages/:route, /api/features/:feature
func SetupAccessRoutes(api *gin.RouterGroup, cfg *AccessRouteConfig) {
	// State lookups answer for anonymous callers too.
	api.GET("/access/state", cfg.AccessHandler.GetState)

	api.GET("/entitlements/me", cfg.RouteGuard.Authenticated(), cfg.EntitlementHandler.GetMine)

	api.GET("/pages/:route", cfg.RouteGuard.RequireFromParam("route"), cfg.AccessHandler.ShowPage)

	// Feature guards do not check authentication themselves.
	features := api.Group("/features")
	features.Use(cfg.RouteGuard.Authenticated())
	{
		features.GET("/:feature", cfg.FeatureGuard.RequireFromParam("feature"), cfg.AccessHandler.ShowFeature)
	}
}
