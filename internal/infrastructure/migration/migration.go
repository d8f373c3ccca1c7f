package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// Manager runs a migration strategy.
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks AutoMigrate in debug mode and goose scripts everywhere else.
func NewManager(mode, driver string, log logger.Interface) (*Manager, error) {
	if mode == "debug" {
		return NewManagerWithStrategy(NewGormAutoMigrateStrategy(log), log), nil
	}
	strategy, err := NewGooseStrategy(driver, log)
	if err != nil {
		return nil, err
	}
	return NewManagerWithStrategy(strategy, log), nil
}

func NewManagerWithStrategy(strategy Strategy, log logger.Interface) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   log.Named("migration.manager"),
	}
}

func (m *Manager) Migrate(db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.GetName())

	if err := m.strategy.Migrate(db); err != nil {
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}
	return nil
}

func (m *Manager) Strategy() Strategy {
	return m.strategy
}
