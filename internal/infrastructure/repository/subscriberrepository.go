package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/infrastructure/persistence/mappers"
	"github.com/vendora-inc/vendora/internal/infrastructure/persistence/models"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// SubscriberRepository reads subscription records from the subscribers table.
type SubscriberRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewSubscriberRepository(db *gorm.DB, logger logger.Interface) *SubscriberRepository {
	return &SubscriberRepository{
		db:     db,
		logger: logger,
	}
}

// FindByUserID returns subscription.ErrRecordNotFound when the user has no row.
func (r *SubscriberRepository) FindByUserID(ctx context.Context, userID string) (*subscription.Record, error) {
	var model models.SubscriberModel

	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrRecordNotFound
		}
		r.logger.Errorw("failed to query subscriber", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to query subscriber: %w", err)
	}

	return mappers.ToSubscriptionRecord(&model), nil
}

// CreateTrial inserts the signup record. An existing row is left untouched.
func (r *SubscriberRepository) CreateTrial(ctx context.Context, userID, email string, now time.Time) error {
	rec := subscription.NewTrialRecord(now.UTC())
	model := &models.SubscriberModel{
		UserID:   userID,
		Email:    email,
		TrialEnd: rec.TrialEnd,
		Metadata: datatypes.JSON(`{"source":"signup"}`),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create trial subscriber", "user_id", userID, "error", result.Error)
		return fmt.Errorf("failed to create trial subscriber: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		r.logger.Infow("subscriber already exists, trial not reset", "user_id", userID)
		return nil
	}
	r.logger.Infow("trial subscriber created", "user_id", userID, "trial_end", rec.TrialEnd)
	return nil
}
