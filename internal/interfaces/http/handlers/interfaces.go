package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/application/billing/usecases"
	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
	"github.com/vendora-inc/vendora/internal/shared/errors"
)

// Use case interfaces for BillingHandler

type createCheckoutSessionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateCheckoutSessionCommand) (*usecases.CreateCheckoutSessionResult, error)
}

type createPortalSessionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreatePortalSessionCommand) (*usecases.CreatePortalSessionResult, error)
}

type confirmCheckoutUseCase interface {
	Execute(ctx context.Context, scope usecases.SubscriptionScope) (*usecases.ConfirmCheckoutResult, error)
}

// Guard interfaces for AccessHandler

type routeDecider interface {
	Decide(c *gin.Context, routeKey string) (middleware.GuardDecision, bool)
}

type featureDecider interface {
	Decide(c *gin.Context, featureKey string) (middleware.GuardDecision, bool)
}

// signedInAccess returns the access context of an authenticated caller.
func signedInAccess(c *gin.Context) (*middleware.AccessContext, error) {
	ac, ok := middleware.GetAccessContext(c)
	if !ok || !ac.Identity.IsAuthenticated {
		return nil, errors.NewUnauthorizedError("Sign in to continue")
	}
	return ac, nil
}

// signedInScope is signedInAccess for handlers that refresh the caller's
// session scope.
func signedInScope(c *gin.Context) (*middleware.AccessContext, error) {
	ac, err := signedInAccess(c)
	if err != nil {
		return nil, err
	}
	if ac.Scope == nil {
		return nil, errors.NewUnauthorizedError("Sign in to continue")
	}
	return ac, nil
}
