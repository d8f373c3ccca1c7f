package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TableSubscribers   = "subscribers"
	TableOrganizations = "organizations"
	TableMemberships   = "memberships"
)

// SubscriberModel is the stored subscription record of one user. Rows are
// written by the billing-event pipeline; this service reads them.
type SubscriberModel struct {
	UserID            string  `gorm:"primaryKey;size:64"`
	Email             string  `gorm:"not null;size:255;index:idx_subscribers_email"`
	Subscribed        bool    `gorm:"not null;default:false"`
	PlanName          *string `gorm:"size:100"`
	SubscriptionEnd   *time.Time
	TrialEnd          *time.Time
	BillingCustomerID *string        `gorm:"size:100"`
	Metadata          datatypes.JSON `gorm:"type:json"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for GORM
func (SubscriberModel) TableName() string {
	return TableSubscribers
}
