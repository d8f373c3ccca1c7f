package http

import (
	"gorm.io/gorm"

	"github.com/vendora-inc/vendora/internal/infrastructure/repository"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// repositories holds all repository instances.
type repositories struct {
	subscriberRepo *repository.SubscriberRepository
	membershipRepo *repository.MembershipRepository
}

// newRepositories creates all repository instances from the database connection.
func newRepositories(db *gorm.DB, log logger.Interface) *repositories {
	return &repositories{
		subscriberRepo: repository.NewSubscriberRepository(db, log),
		membershipRepo: repository.NewMembershipRepository(db, log),
	}
}
