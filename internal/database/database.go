package database

import (
	"fmt"

	"github.com/apphubhq/apphub/internal/apps"
	"github.com/apphubhq/apphub/internal/config"
	"github.com/apphubhq/apphub/internal/feedback"
	"github.com/apphubhq/apphub/internal/insights"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open establishes a database connection for the configured driver and
// performs schema migrations. Postgres serves production; SQLite serves
// local development and tests.
func Open(cfg config.AppConfig, logger *zap.Logger) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return open(postgres.Open(cfg.DatabaseDSN), "postgres", cfg.DatabaseDSN != "", logger)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DatabasePath, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := open(sqlite.Open(path), path, true, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func open(dialector gorm.Dialector, target string, configured bool, logger *zap.Logger) (*gorm.DB, error) {
	if !configured {
		return nil, fmt.Errorf("database connection string is required")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&apps.App{}, &feedback.Feedback{}, &insights.Insight{}, &migrationRecord{}); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("target", target))
	}

	return db, nil
}
