package models

import "time"

type OrganizationModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Slug        string `gorm:"uniqueIndex;not null;size:100"`
	Name        string `gorm:"not null;size:255"`
	OwnerUserID string `gorm:"not null;size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (OrganizationModel) TableName() string {
	return TableOrganizations
}

// MembershipModel binds a user to a role in an organization.
type MembershipModel struct {
	OrgID     string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"primaryKey;size:64;index:idx_memberships_user"`
	Role      string `gorm:"not null;size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MembershipModel) TableName() string {
	return TableMemberships
}

// All lists every model managed by this service, in dependency order.
func All() []any {
	return []any{
		&SubscriberModel{},
		&OrganizationModel{},
		&MembershipModel{},
	}
}
