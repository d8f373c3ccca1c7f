// Package organization models tenants and the roles their members hold.
package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vendora-inc/vendora/internal/domain/identity"
)

var ErrMembershipNotFound = errors.New("membership not found")

// Organization is a tenant of the business application.
type Organization struct {
	ID          string
	Slug        string
	Name        string
	OwnerUserID string
	CreatedAt   time.Time
}

// Membership binds one user to one role in one organization.
type Membership struct {
	OrgID     string
	UserID    string
	Role      identity.OrgRole
	CreatedAt time.Time
}

// NewMembership validates and builds a membership.
func NewMembership(orgID, userID string, role identity.OrgRole) (*Membership, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, fmt.Errorf("organization id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown organization role %q", role)
	}
	return &Membership{
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Repository reads and writes memberships.
type Repository interface {
	// FindMembership returns ErrMembershipNotFound when the user is not a member.
	FindMembership(ctx context.Context, orgID, userID string) (*Membership, error)
	SaveOrganization(ctx context.Context, org *Organization) error
	SaveMembership(ctx context.Context, m *Membership) error
}
