package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// Store is the GORM-backed implementation of every repository interface.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and runs migrations for the
// engine-owned tables.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return New(db)
}

// New wraps an existing GORM connection and runs migrations.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&model.Unit{},
		&model.Tenant{},
		&model.Lease{},
		&model.Payment{},
		&model.MaintenanceTicket{},
		&model.RenewalScore{},
		&model.RenewalScenario{},
		&model.RenewalOffer{},
		&model.NegotiationLogEntry{},
		&model.OutcomeFeedback{},
		&model.LandlordNotification{},
		&model.MessageLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
