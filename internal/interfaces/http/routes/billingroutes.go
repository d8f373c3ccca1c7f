package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/interfaces/http/handlers"
	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
)

// BillingRouteConfig holds dependencies for billing and subscription routes.
type BillingRouteConfig struct {
	BillingHandler      *handlers.BillingHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	RouteGuard          *middleware.RouteGuard
	RateLimit           *middleware.RateLimitMiddleware
}

// SetupBillingRoutes configures checkout, portal and subscription refresh routes.
// Routes: /api/billing/*, /api/subscription/refresh
func SetupBillingRoutes(api *gin.RouterGroup, cfg *BillingRouteConfig) {
	billing := api.Group("/billing")
	billing.Use(cfg.RouteGuard.Authenticated())
	{
		// Session creation calls the billing provider; throttle it per user.
		billing.POST("/checkout", cfg.RateLimit.LimitByUser("checkout"), cfg.BillingHandler.CreateCheckout)
		billing.POST("/checkout/confirm", cfg.BillingHandler.ConfirmCheckout)
		billing.POST("/portal", cfg.RateLimit.LimitByUser("portal"), cfg.BillingHandler.CreatePortal)
	}

	api.POST("/subscription/refresh", cfg.RouteGuard.Authenticated(), cfg.SubscriptionHandler.Refresh)
}
