package usecases

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-inc/vendora/internal/application/billing"
	"github.com/vendora-inc/vendora/internal/application/subscription"
	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type fakeGateway struct {
	checkoutReq  billing.CheckoutRequest
	checkoutErr  error
	customers    map[string]string
	lookupErr    error
	portalCalls  int
	portalReturn string
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	g.checkoutReq = req
	if g.checkoutErr != nil {
		return "", g.checkoutErr
	}
	return "https://checkout.example.test/c/" + req.PriceID, nil
}

func (g *fakeGateway) FindCustomerByEmail(_ context.Context, email string) (string, error) {
	if g.lookupErr != nil {
		return "", g.lookupErr
	}
	id, ok := g.customers[email]
	if !ok {
		return "", billing.ErrCustomerNotFound
	}
	return id, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	g.portalCalls++
	g.portalReturn = returnURL
	return "https://portal.example.test/p/" + customerID, nil
}

var checkoutConfig = CheckoutConfig{
	PriceAllowlist: []string{"price_start_monthly", "price_pro_monthly"},
	SuccessURL:     "https://app.vendora.test/billing/success",
	CancelURL:      "https://app.vendora.test/billing",
}

// ===== TestCreateCheckoutSession =====

func TestCreateCheckoutSession_AllowedPrice(t *testing.T) {
	gw := &fakeGateway{}
	uc := NewCreateCheckoutSessionUseCase(gw, checkoutConfig, logger.Nop())

	res, err := uc.Execute(context.Background(), CreateCheckoutSessionCommand{
		UserID:  "user-1",
		Email:   "ana@example.test",
		PriceID: "price_pro_monthly",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.test/c/price_pro_monthly", res.URL)
	assert.Equal(t, "user-1", gw.checkoutReq.ClientReferenceID)
	assert.Equal(t, "ana@example.test", gw.checkoutReq.CustomerEmail)
	assert.Equal(t, checkoutConfig.SuccessURL, gw.checkoutReq.SuccessURL)
}

func TestCreateCheckoutSession_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		gateway billing.Gateway
		cmd     CreateCheckoutSessionCommand
		errType errors.ErrorType
	}{
		{
			name:    "unknown price",
			gateway: &fakeGateway{},
			cmd:     CreateCheckoutSessionCommand{UserID: "user-1", PriceID: "price_free_forever"},
			errType: errors.ErrorTypeInvalidPriceIdentifier,
		},
		{
			name:    "empty price",
			gateway: &fakeGateway{},
			cmd:     CreateCheckoutSessionCommand{UserID: "user-1"},
			errType: errors.ErrorTypeInvalidPriceIdentifier,
		},
		{
			name:    "billing not configured",
			gateway: nil,
			cmd:     CreateCheckoutSessionCommand{UserID: "user-1", PriceID: "price_pro_monthly"},
			errType: errors.ErrorTypeMissingBillingConfiguration,
		},
		{
			name:    "anonymous",
			gateway: &fakeGateway{},
			cmd:     CreateCheckoutSessionCommand{PriceID: "price_pro_monthly"},
			errType: errors.ErrorTypeUnauthorized,
		},
		{
			name:    "provider failure",
			gateway: &fakeGateway{checkoutErr: stderrors.New("rate limited")},
			cmd:     CreateCheckoutSessionCommand{UserID: "user-1", PriceID: "price_start_monthly"},
			errType: errors.ErrorTypeBillingProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewCreateCheckoutSessionUseCase(tt.gateway, checkoutConfig, logger.Nop())
			res, err := uc.Execute(context.Background(), tt.cmd)
			assert.Nil(t, res)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

// ===== TestCreatePortalSession =====

var portalConfig = PortalConfig{
	AllowedReturnOrigins: []string{"https://app.vendora.test", "https://Admin.vendora.test/"},
	DefaultReturnOrigin:  "https://app.vendora.test",
	ReturnPath:           "/settings/billing",
}

func TestCreatePortalSession(t *testing.T) {
	gw := &fakeGateway{customers: map[string]string{"ana@example.test": "cus_123"}}
	uc := NewCreatePortalSessionUseCase(gw, portalConfig, logger.Nop())

	res, err := uc.Execute(context.Background(), CreatePortalSessionCommand{
		UserID: "user-1",
		Email:  "ana@example.test",
		Origin: "https://admin.vendora.test",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.test/p/cus_123", res.URL)
	assert.Equal(t, "https://admin.vendora.test/settings/billing", gw.portalReturn)
}

func TestCreatePortalSession_CustomerNotFound(t *testing.T) {
	gw := &fakeGateway{customers: map[string]string{}}
	uc := NewCreatePortalSessionUseCase(gw, portalConfig, logger.Nop())

	_, err := uc.Execute(context.Background(), CreatePortalSessionCommand{UserID: "user-1", Email: "new@example.test"})

	assert.True(t, errors.IsType(err, errors.ErrorTypePortalCustomerNotFound))
	assert.Equal(t, 0, gw.portalCalls)
}

func TestCreatePortalSession_LookupFailure(t *testing.T) {
	gw := &fakeGateway{lookupErr: stderrors.New("api key revoked")}
	uc := NewCreatePortalSessionUseCase(gw, portalConfig, logger.Nop())

	_, err := uc.Execute(context.Background(), CreatePortalSessionCommand{UserID: "user-1", Email: "ana@example.test"})

	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrorTypeBillingProvider, appErr.Type)
	assert.NotContains(t, appErr.Message, "api key")
}

func TestPortalReturnURL(t *testing.T) {
	uc := NewCreatePortalSessionUseCase(&fakeGateway{}, portalConfig, logger.Nop())

	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.vendora.test", "https://app.vendora.test/settings/billing"},
		{"https://APP.vendora.test/", "https://app.vendora.test/settings/billing"},
		{"https://evil.example", "https://app.vendora.test/settings/billing"},
		{"https://app.vendora.test.evil.example", "https://app.vendora.test/settings/billing"},
		{"https://app.vendora.test/phish?x=1", "https://app.vendora.test/settings/billing"},
		{"javascript:alert(1)", "https://app.vendora.test/settings/billing"},
		{"", "https://app.vendora.test/settings/billing"},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, uc.ReturnURL(tt.origin))
		})
	}
}

// ===== TestConfirmCheckout =====

type stubScope struct {
	refreshErr error
	snapshot   subscription.Snapshot
	refreshes  int
}

func (s *stubScope) Refresh(context.Context) error {
	s.refreshes++
	return s.refreshErr
}

func (s *stubScope) Resolve(context.Context) subscription.Snapshot {
	return s.snapshot
}

func TestConfirmCheckout(t *testing.T) {
	uc := NewConfirmCheckoutUseCase(logger.Nop())
	pro := "Pro"

	t.Run("activating until subscribed", func(t *testing.T) {
		scope := &stubScope{snapshot: subscription.Snapshot{UserID: "user-1", Record: &domain.Record{}}}
		res, err := uc.Execute(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, CheckoutStatusActivating, res.Status)
		assert.Equal(t, 1, scope.refreshes)
	})

	t.Run("active once subscribed", func(t *testing.T) {
		scope := &stubScope{snapshot: subscription.Snapshot{UserID: "user-1", Record: &domain.Record{Subscribed: true, PlanName: &pro}}}
		res, err := uc.Execute(context.Background(), scope)
		require.NoError(t, err)
		assert.Equal(t, CheckoutStatusActive, res.Status)
		require.NotNil(t, res.Summary)
		assert.Equal(t, "pro", res.Summary.Tier.String())
	})

	t.Run("refresh error", func(t *testing.T) {
		scope := &stubScope{refreshErr: stderrors.New("db down")}
		_, err := uc.Execute(context.Background(), scope)
		assert.True(t, errors.IsType(err, errors.ErrorTypeSubscriptionFetch))
	})

	t.Run("signed out", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), &stubScope{})
		assert.True(t, errors.IsType(err, errors.ErrorTypeUnauthorized))
	})
}
