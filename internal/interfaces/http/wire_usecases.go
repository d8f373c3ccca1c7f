package http

import (
	"strings"

	"github.com/vendora-inc/vendora/internal/application/billing"
	"github.com/vendora-inc/vendora/internal/application/billing/usecases"
	"github.com/vendora-inc/vendora/internal/infrastructure/payment"
)

// allUseCases holds all use case instances.
type allUseCases struct {
	createCheckoutUC *usecases.CreateCheckoutSessionUseCase
	createPortalUC   *usecases.CreatePortalSessionUseCase
	confirmUC        *usecases.ConfirmCheckoutUseCase
}

// ============================================================
// Section 3: Billing use cases
// ============================================================

func (c *Container) initUseCases() {
	cfg := c.cfg.Billing
	log := c.log

	// A nil gateway makes the use cases answer MissingBillingConfiguration.
	var gateway billing.Gateway
	if strings.TrimSpace(cfg.SecretKey) != "" {
		gateway = payment.NewStripeGateway(cfg.SecretKey, nil, log)
	} else {
		log.Warnw("billing secret key not set, checkout and portal are disabled")
	}

	// Stripe substitutes the session id placeholder on redirect.
	successURL := withQuery(joinURL(cfg.DefaultReturnOrigin, cfg.SuccessPath), "session_id={CHECKOUT_SESSION_ID}")

	c.ucs = &allUseCases{
		createCheckoutUC: usecases.NewCreateCheckoutSessionUseCase(gateway, usecases.CheckoutConfig{
			PriceAllowlist: cfg.PriceAllowlist,
			SuccessURL:     successURL,
			CancelURL:      joinURL(cfg.DefaultReturnOrigin, cfg.CancelPath),
		}, log.Named("billing.checkout")),
		createPortalUC: usecases.NewCreatePortalSessionUseCase(gateway, usecases.PortalConfig{
			AllowedReturnOrigins: cfg.AllowedReturnOrigins,
			DefaultReturnOrigin:  cfg.DefaultReturnOrigin,
			ReturnPath:           cfg.PortalReturnPath,
		}, log.Named("billing.portal")),
		confirmUC: usecases.NewConfirmCheckoutUseCase(log.Named("billing.confirm")),
	}
}

func joinURL(origin, path string) string {
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}

func withQuery(rawURL, query string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
