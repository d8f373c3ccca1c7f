package usecases

import (
	"context"
	stderrors "errors"
	"net/url"
	"strings"

	"github.com/vendora-inc/vendora/internal/application/billing"
	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type CreatePortalSessionCommand struct {
	UserID string
	Email  string
	// Origin is the caller-supplied return origin, validated against the allowlist.
	Origin string
}

type CreatePortalSessionResult struct {
	URL string `json:"url"`
}

type PortalConfig struct {
	AllowedReturnOrigins []string
	DefaultReturnOrigin  string
	ReturnPath           string
}

type CreatePortalSessionUseCase struct {
	gateway billing.Gateway
	origins map[string]struct{}
	config  PortalConfig
	logger  logger.Interface
}

func NewCreatePortalSessionUseCase(gateway billing.Gateway, config PortalConfig, logger logger.Interface) *CreatePortalSessionUseCase {
	origins := make(map[string]struct{}, len(config.AllowedReturnOrigins))
	for _, o := range config.AllowedReturnOrigins {
		if normalized, ok := normalizeOrigin(o); ok {
			origins[normalized] = struct{}{}
		}
	}
	return &CreatePortalSessionUseCase{
		gateway: gateway,
		origins: origins,
		config:  config,
		logger:  logger,
	}
}

func (uc *CreatePortalSessionUseCase) Execute(ctx context.Context, cmd CreatePortalSessionCommand) (*CreatePortalSessionResult, error) {
	uc.logger.Infow("executing create portal session use case", "user_id", cmd.UserID)

	if cmd.UserID == "" || cmd.Email == "" {
		return nil, errors.NewUnauthorizedError("Sign in to manage billing")
	}
	if uc.gateway == nil {
		uc.logger.Errorw("portal requested but billing provider is not configured", "user_id", cmd.UserID)
		return nil, errors.NewMissingBillingConfigurationError()
	}

	customerID, err := uc.gateway.FindCustomerByEmail(ctx, cmd.Email)
	if err != nil {
		if stderrors.Is(err, billing.ErrCustomerNotFound) {
			uc.logger.Infow("no billing customer for portal request", "user_id", cmd.UserID)
			return nil, errors.NewPortalCustomerNotFoundError()
		}
		uc.logger.Errorw("failed to look up billing customer", "user_id", cmd.UserID, "error", err)
		return nil, errors.NewBillingProviderError(err.Error()).WithCause(err)
	}

	returnURL := uc.ReturnURL(cmd.Origin)
	portalURL, err := uc.gateway.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		uc.logger.Errorw("failed to create portal session", "user_id", cmd.UserID, "error", err)
		return nil, errors.NewBillingProviderError(err.Error()).WithCause(err)
	}

	return &CreatePortalSessionResult{URL: portalURL}, nil
}

// ReturnURL joins the validated origin with the configured return path. An
// origin outside the allowlist is replaced by the default origin.
func (uc *CreatePortalSessionUseCase) ReturnURL(origin string) string {
	chosen := strings.TrimRight(uc.config.DefaultReturnOrigin, "/")
	if normalized, ok := normalizeOrigin(origin); ok {
		if _, allowed := uc.origins[normalized]; allowed {
			chosen = normalized
		} else {
			uc.logger.Warnw("portal return origin not allowed, using default", "origin", origin)
		}
	}
	return chosen + uc.config.ReturnPath
}

// normalizeOrigin reduces a URL to scheme://host[:port]. Anything with a
// path, query, fragment or credentials is rejected.
func normalizeOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil {
		return "", false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", false
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), true
}
