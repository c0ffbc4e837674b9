package database

import (
	"fmt"
	"log/slog" // use slog for structured logging
	"os"
	"path/filepath"

	"mangako/internal/config"
	"mangako/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm opens the local store named by cfg.DatabaseURL and migrates it.
// A postgres:// DSN selects postgres, anything else is a sqlite file path.
func OpenGorm(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.IsDevelopment() && cfg.LogLevel == "debug" {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	if cfg.UsesPostgres() {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		if dir := filepath.Dir(cfg.DatabaseURL); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		// close the db handle if ping fails to avoid resource leak
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if !cfg.UsesPostgres() {
		// sqlite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("database_connected",
		slog.Bool("postgres", cfg.UsesPostgres()),
	)
	return db, nil
}

// Migrate creates or updates the manga, volume and sync_state tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Manga{}, &models.Volume{}, &models.SyncState{})
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
