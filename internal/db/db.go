package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-maintenance-backend/config"
	"hotel-maintenance-backend/internal/model"
)

// Init initializes the database connection and runs migrations. A DSN starting
// with "file:" or ending in ".db" selects sqlite, anything else postgres.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(cfg.DSN, "file:") || strings.HasSuffix(cfg.DSN, ".db") {
		dialector = sqlite.Open(cfg.DSN)
	} else {
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Hotel{},
		&model.Department{},
		&model.Location{},
		&model.MaintenanceOrder{},
		&model.OrderStatusHistory{},
		&model.OrderAssignmentHistory{},
		&model.OrderComment{},
		&model.OrderAttachment{},
		&model.SLAConfiguration{},
		&model.PreventiveMaintenanceSchedule{},
		&model.OrderNumberSequence{},
		&model.PushSubscription{},
	)
}
