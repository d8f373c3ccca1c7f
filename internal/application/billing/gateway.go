// Package billing defines the port to the external billing provider.
package billing

import (
	"context"
	"errors"
)

var ErrCustomerNotFound = errors.New("billing customer not found")

// CheckoutRequest describes a hosted checkout for one subscription price.
type CheckoutRequest struct {
	PriceID           string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
}

// Gateway is implemented by the billing provider adapter.
type Gateway interface {
	// CreateCheckoutSession returns the hosted checkout URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	// FindCustomerByEmail returns ErrCustomerNotFound when no customer matches.
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	// CreatePortalSession returns the hosted self-service portal URL.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
