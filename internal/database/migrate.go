package database

import (
	"fmt"

	"stockwatch/internal/model"
	"stockwatch/pkg/log"
)

// AutoMigrate runs schema migration for all stock tables
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(
		&model.StockUnit{},
		&model.StockMovement{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	log.Info("Database migration completed")
	return nil
}
