package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora-inc/vendora/internal/domain/organization"
	"github.com/vendora-inc/vendora/internal/infrastructure/persistence/mappers"
	"github.com/vendora-inc/vendora/internal/infrastructure/persistence/models"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

type MembershipRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewMembershipRepository(db *gorm.DB, logger logger.Interface) *MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MembershipRepository) FindMembership(ctx context.Context, orgID, userID string) (*organization.Membership, error) {
	var model models.MembershipModel

	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organization.ErrMembershipNotFound
		}
		r.logger.Errorw("failed to query membership", "org_id", orgID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query membership: %w", err)
	}

	return mappers.ToMembership(&model)
}

func (r *MembershipRepository) SaveOrganization(ctx context.Context, org *organization.Organization) error {
	model := mappers.FromOrganization(org)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"slug", "name", "owner_user_id", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save organization: %w", err)
	}
	return nil
}

// SaveMembership creates the membership or updates its role.
func (r *MembershipRepository) SaveMembership(ctx context.Context, m *organization.Membership) error {
	model := mappers.FromMembership(m)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to save membership", "org_id", m.OrgID, "user_id", m.UserID, "error", err)
		return fmt.Errorf("failed to save membership: %w", err)
	}
	return nil
}
