package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/domain/organization"
	apperrors "github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// MembershipFinder is the read side of the organization repository.
type MembershipFinder interface {
	FindMembership(ctx context.Context, orgID, userID string) (*organization.Membership, error)
}

// IdentityProvider turns a bearer token into an Identity.
type IdentityProvider struct {
	tokens      *JWTService
	memberships MembershipFinder
	logger      logger.Interface
}

func NewIdentityProvider(tokens *JWTService, memberships MembershipFinder, log logger.Interface) *IdentityProvider {
	return &IdentityProvider{
		tokens:      tokens,
		memberships: memberships,
		logger:      log.Named("auth.identity"),
	}
}

// Authenticate verifies the token. An empty token yields (nil, nil); a bad
// token yields an AuthResolutionError.
func (p *IdentityProvider) Authenticate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	claims, err := p.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.NewAuthResolutionError("token rejected").WithCause(err)
	}
	return claims, nil
}

// Resolve builds the settled identity for verified claims. Nil claims mean
// an anonymous caller. A missing membership leaves OrgRole nil; any other
// lookup failure is an AuthResolutionError and the caller is anonymous.
func (p *IdentityProvider) Resolve(ctx context.Context, claims *Claims) (identity.Identity, error) {
	if claims == nil {
		return identity.Anonymous(), nil
	}

	id := identity.Identity{
		IsAuthenticated: true,
		UserID:          claims.UserID(),
		Email:           claims.Email,
		OrgID:           claims.OrgID,
		IsSuperAdmin:    claims.SuperAdmin,
	}
	if claims.OrgID == "" {
		return id, nil
	}

	membership, err := p.memberships.FindMembership(ctx, claims.OrgID, claims.UserID())
	switch {
	case errors.Is(err, organization.ErrMembershipNotFound):
		p.logger.Debugw("user has no membership in active organization",
			"user_id", id.UserID,
			"org_id", id.OrgID,
		)
		return id, nil
	case err != nil:
		p.logger.Errorw("failed to look up membership",
			"user_id", id.UserID,
			"org_id", id.OrgID,
			"error", err,
		)
		return identity.Anonymous(), apperrors.NewAuthResolutionError("membership lookup failed").WithCause(err)
	}

	role := membership.Role
	id.OrgRole = &role
	return id, nil
}
