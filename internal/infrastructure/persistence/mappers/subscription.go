// Package mappers converts between persistence models and domain types.
package mappers

import (
	"fmt"

	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/domain/organization"
	"github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/infrastructure/persistence/models"
)

func ToSubscriptionRecord(m *models.SubscriberModel) *subscription.Record {
	return &subscription.Record{
		Subscribed:      m.Subscribed,
		PlanName:        m.PlanName,
		SubscriptionEnd: m.SubscriptionEnd,
		TrialEnd:        m.TrialEnd,
	}
}

func ToMembership(m *models.MembershipModel) (*organization.Membership, error) {
	role, err := identity.ParseOrgRole(m.Role)
	if err != nil {
		return nil, fmt.Errorf("membership %s/%s: %w", m.OrgID, m.UserID, err)
	}
	return &organization.Membership{
		OrgID:     m.OrgID,
		UserID:    m.UserID,
		Role:      role,
		CreatedAt: m.CreatedAt,
	}, nil
}

func FromMembership(m *organization.Membership) *models.MembershipModel {
	return &models.MembershipModel{
		OrgID:     m.OrgID,
		UserID:    m.UserID,
		Role:      m.Role.String(),
		CreatedAt: m.CreatedAt,
	}
}

func FromOrganization(o *organization.Organization) *models.OrganizationModel {
	return &models.OrganizationModel{
		ID:          o.ID,
		Slug:        o.Slug,
		Name:        o.Name,
		OwnerUserID: o.OwnerUserID,
		CreatedAt:   o.CreatedAt,
	}
}
