// Package migration applies the database schema, either from versioned goose
// scripts or with GORM AutoMigrate during development.
package migration

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/vendora-inc/vendora/internal/infrastructure/persistence/models"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

//go:embed scripts/*.sql
var scripts embed.FS

const scriptsDir = "scripts"

// Strategy applies the schema to a database.
type Strategy interface {
	Migrate(db *gorm.DB) error
	GetName() string
}

// GormAutoMigrateStrategy derives the schema from the persistence models.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy(log logger.Interface) *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{logger: log.Named("migration.automigrate")}
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB) error {
	all := models.All()
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	s.logger.Infow("gorm auto migrate completed", "models_count", len(all))
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

// GooseStrategy runs the embedded, versioned SQL scripts.
type GooseStrategy struct {
	dialect string
	logger  logger.Interface
}

// NewGooseStrategy maps a database driver name to its goose dialect.
func NewGooseStrategy(driver string, log logger.Interface) (*GooseStrategy, error) {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}
	return &GooseStrategy{
		dialect: dialect,
		logger:  log.Named("migration.goose"),
	}, nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "mysql", "":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (s *GooseStrategy) prepare() error {
	goose.SetBaseFS(scripts)
	if err := goose.SetDialect(s.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

func (s *GooseStrategy) Migrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return err
	}

	from, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if err := goose.Up(sqlDB, scriptsDir); err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	to, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("migration completed", "from_version", from, "to_version", to)
	return nil
}

// Version returns the applied schema version.
func (s *GooseStrategy) Version(db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(sqlDB)
}

func (s *GooseStrategy) GetName() string {
	return "goose"
}

// MigrateDown rolls back the given number of migrations, one at a time.
func (s *GooseStrategy) MigrateDown(db *gorm.DB, steps int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		if err := goose.Down(sqlDB, scriptsDir); err != nil {
			return fmt.Errorf("failed to roll back migration %d of %d: %w", i+1, steps, err)
		}
	}
	return nil
}

// Status prints every migration and whether it is applied.
func (s *GooseStrategy) Status(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.prepare(); err != nil {
		return err
	}
	return goose.Status(sqlDB, scriptsDir)
}
