// Package payment adapts the Stripe API to the billing gateway port.
package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/vendora-inc/vendora/internal/application/billing"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

var _ billing.Gateway = (*StripeGateway)(nil)

type StripeGateway struct {
	api    *client.API
	logger logger.Interface
}

// NewStripeGateway builds a gateway bound to secretKey. Backends may be nil
// to use Stripe's defaults.
func NewStripeGateway(secretKey string, backends *stripe.Backends, log logger.Interface) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{
		api:    api,
		logger: log.Named("payment.stripe"),
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Warnw("stripe checkout session failed", "price_id", req.PriceID, "error", err)
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	g.logger.Infow("checkout session created", "session_id", s.ID, "price_id", req.PriceID)
	return s.URL, nil
}

func (g *StripeGateway) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	iter := g.api.Customers.List(params)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		g.logger.Warnw("stripe customer lookup failed", "error", err)
		return "", fmt.Errorf("failed to list customers: %w", err)
	}
	return "", billing.ErrCustomerNotFound
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		g.logger.Warnw("stripe portal session failed", "customer_id", customerID, "error", err)
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return s.URL, nil
}
