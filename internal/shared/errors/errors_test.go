package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code int
		typ  ErrorType
	}{
		{"invalid price", NewInvalidPriceIdentifierError("price_x"), http.StatusBadRequest, ErrorTypeInvalidPriceIdentifier},
		{"missing config", NewMissingBillingConfigurationError(), http.StatusServiceUnavailable, ErrorTypeMissingBillingConfiguration},
		{"portal customer", NewPortalCustomerNotFoundError(), http.StatusNotFound, ErrorTypePortalCustomerNotFound},
		{"provider", NewBillingProviderError("card_declined"), http.StatusBadGateway, ErrorTypeBillingProvider},
		{"unauthorized", NewUnauthorizedError("sign in"), http.StatusUnauthorized, ErrorTypeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}
}

func TestAppError_WrappedLookup(t *testing.T) {
	cause := stderrors.New("connection refused")
	appErr := NewSubscriptionFetchError("db down").WithCause(cause)
	wrapped := fmt.Errorf("resolve: %w", appErr)

	assert.True(t, IsAppError(wrapped))
	assert.Equal(t, appErr, GetAppError(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "subscription_fetch_error: Subscription status is unavailable (db down)", appErr.Error())
	assert.Nil(t, GetAppError(cause))
}
