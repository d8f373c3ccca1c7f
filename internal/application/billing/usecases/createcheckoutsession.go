package usecases

import (
	"context"
	"strings"

	"github.com/vendora-inc/vendora/internal/application/billing"
	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type CreateCheckoutSessionCommand struct {
	UserID  string
	Email   string
	PriceID string
}

type CreateCheckoutSessionResult struct {
	URL string `json:"url"`
}

type CheckoutConfig struct {
	PriceAllowlist []string
	SuccessURL     string
	CancelURL      string
}

type CreateCheckoutSessionUseCase struct {
	gateway   billing.Gateway
	allowlist map[string]struct{}
	config    CheckoutConfig
	logger    logger.Interface
}

// NewCreateCheckoutSessionUseCase builds the use case. A nil gateway means the
// billing provider is not configured.
func NewCreateCheckoutSessionUseCase(gateway billing.Gateway, config CheckoutConfig, logger logger.Interface) *CreateCheckoutSessionUseCase {
	allowlist := make(map[string]struct{}, len(config.PriceAllowlist))
	for _, id := range config.PriceAllowlist {
		if id = strings.TrimSpace(id); id != "" {
			allowlist[id] = struct{}{}
		}
	}
	return &CreateCheckoutSessionUseCase{
		gateway:   gateway,
		allowlist: allowlist,
		config:    config,
		logger:    logger,
	}
}

func (uc *CreateCheckoutSessionUseCase) Execute(ctx context.Context, cmd CreateCheckoutSessionCommand) (*CreateCheckoutSessionResult, error) {
	uc.logger.Infow("executing create checkout session use case", "user_id", cmd.UserID, "price_id", cmd.PriceID)

	if cmd.UserID == "" {
		return nil, errors.NewUnauthorizedError("Sign in to subscribe")
	}
	if uc.gateway == nil {
		uc.logger.Errorw("checkout requested but billing provider is not configured", "user_id", cmd.UserID)
		return nil, errors.NewMissingBillingConfigurationError()
	}
	if _, ok := uc.allowlist[cmd.PriceID]; !ok {
		uc.logger.Warnw("rejected checkout for unknown price", "user_id", cmd.UserID, "price_id", cmd.PriceID)
		return nil, errors.NewInvalidPriceIdentifierError(cmd.PriceID)
	}

	url, err := uc.gateway.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		PriceID:           cmd.PriceID,
		CustomerEmail:     cmd.Email,
		ClientReferenceID: cmd.UserID,
		SuccessURL:        uc.config.SuccessURL,
		CancelURL:         uc.config.CancelURL,
	})
	if err != nil {
		uc.logger.Errorw("failed to create checkout session", "user_id", cmd.UserID, "error", err)
		return nil, errors.NewBillingProviderError(err.Error()).WithCause(err)
	}

	uc.logger.Infow("checkout session created", "user_id", cmd.UserID, "price_id", cmd.PriceID)
	return &CreateCheckoutSessionResult{URL: url}, nil
}
