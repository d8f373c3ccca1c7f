package usecases

import (
	"context"
	"time"

	"github.com/vendora-inc/vendora/internal/application/subscription"
	"github.com/vendora-inc/vendora/internal/domain/entitlement"
	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

const (
	CheckoutStatusActivating = "activating"
	CheckoutStatusActive     = "active"
)

// SubscriptionScope is the session resolver the confirmation refreshes.
type SubscriptionScope interface {
	Refresh(ctx context.Context) error
	Resolve(ctx context.Context) subscription.Snapshot
}

type ConfirmCheckoutResult struct {
	Status  string               `json:"status"`
	Summary *entitlement.Summary `json:"entitlements,omitempty"`
}

// ConfirmCheckoutUseCase runs when the browser returns from hosted checkout.
// The billing event may not have landed yet, so the caller polls while the
// status is "activating".
type ConfirmCheckoutUseCase struct {
	logger logger.Interface
	now    func() time.Time
}

func NewConfirmCheckoutUseCase(logger logger.Interface) *ConfirmCheckoutUseCase {
	return &ConfirmCheckoutUseCase{
		logger: logger,
		now:    time.Now,
	}
}

func (uc *ConfirmCheckoutUseCase) Execute(ctx context.Context, scope SubscriptionScope) (*ConfirmCheckoutResult, error) {
	if err := scope.Refresh(ctx); err != nil {
		uc.logger.Warnw("post-checkout refresh failed", "error", err)
		if appErr := errors.GetAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, errors.NewSubscriptionFetchError().WithCause(err)
	}

	snap := scope.Resolve(ctx)
	if snap.UserID == "" {
		return nil, errors.NewUnauthorizedError("Sign in to confirm checkout")
	}
	if snap.Record == nil || !snap.Record.Subscribed {
		uc.logger.Infow("subscription still activating after checkout", "user_id", snap.UserID)
		return &ConfirmCheckoutResult{Status: CheckoutStatusActivating}, nil
	}

	summary := entitlement.Summarize(*snap.Record, uc.now())
	uc.logger.Infow("subscription active after checkout", "user_id", snap.UserID, "tier", summary.Tier.String())
	return &ConfirmCheckoutResult{Status: CheckoutStatusActive, Summary: &summary}, nil
}
