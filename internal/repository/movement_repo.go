package repository

import (
	"context"

	"gorm.io/gorm"

	"stockwatch/internal/model"
	"stockwatch/pkg/utils"
)

// MovementRepository stock movement repository interface
type MovementRepository interface {
	// Create persists a movement record
	Create(ctx context.Context, movement *model.StockMovement) error

	// List recent movements of a product in a warehouse, newest first
	ListRecent(ctx context.Context, productID, warehouseID string, limit int) ([]*model.StockMovement, error)
}

// movementRepository stock movement repository implementation
type movementRepository struct {
	db *gorm.DB
}

// NewMovementRepository creates a stock movement repository
func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

// Create persists a movement record
func (r *movementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return utils.WrapError(err, utils.CodeDatabaseError, "failed to record stock movement")
	}
	return nil
}

// ListRecent lists recent movements of a product in a warehouse
func (r *movementRepository) ListRecent(ctx context.Context, productID, warehouseID string, limit int) ([]*model.StockMovement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var movements []*model.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, utils.WrapError(err, utils.CodeDatabaseError, "failed to list stock movements")
	}
	return movements, nil
}
