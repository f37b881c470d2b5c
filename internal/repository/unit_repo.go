package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"stockwatch/internal/model"
)

// ErrUnitNotFound no unit matches the given serial number
var ErrUnitNotFound = errors.New("stock unit not found")

// UnitRepository stock unit repository interface
type UnitRepository interface {
	// List units of a product in a warehouse
	ListByProductAndWarehouse(ctx context.Context, productID, warehouseID string) ([]*model.StockUnit, error)

	// Get unit by serial number
	GetBySerial(ctx context.Context, serialNumber string) (*model.StockUnit, error)

	// Count units in a given status
	CountByStatus(ctx context.Context, productID, warehouseID string, status model.UnitStatus) (int64, error)

	// Lookup denormalized display names for a (product, warehouse) pair
	LookupNames(ctx context.Context, productID, warehouseID string) (string, string, error)
}

// unitRepository stock unit repository implementation
type unitRepository struct {
	db *gorm.DB
}

// NewUnitRepository creates a stock unit repository
func NewUnitRepository(db *gorm.DB) UnitRepository {
	return &unitRepository{db: db}
}

// ListByProductAndWarehouse lists units of a product in a warehouse
func (r *unitRepository) ListByProductAndWarehouse(ctx context.Context, productID, warehouseID string) ([]*model.StockUnit, error) {
	var units []*model.StockUnit
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

// GetBySerial gets a unit by serial number
func (r *unitRepository) GetBySerial(ctx context.Context, serialNumber string) (*model.StockUnit, error) {
	var unit model.StockUnit
	err := r.db.WithContext(ctx).Where("serial_number = ?", serialNumber).First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// CountByStatus counts units of a product in a warehouse with the given status
func (r *unitRepository) CountByStatus(ctx context.Context, productID, warehouseID string, status model.UnitStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.StockUnit{}).
		Where("product_id = ? AND warehouse_id = ? AND status = ?", productID, warehouseID, status).
		Count(&count).Error
	return count, err
}

// LookupNames looks up display names from the products and warehouses tables.
// Missing rows are not an error; callers fall back to raw IDs.
func (r *unitRepository) LookupNames(ctx context.Context, productID, warehouseID string) (string, string, error) {
	var productName, warehouseName string

	err := r.db.WithContext(ctx).
		Table("products").
		Select("name").
		Where("id = ?", productID).
		Limit(1).
		Scan(&productName).Error
	if err != nil {
		return "", "", err
	}

	err = r.db.WithContext(ctx).
		Table("warehouses").
		Select("name").
		Where("id = ?", warehouseID).
		Limit(1).
		Scan(&warehouseName).Error
	if err != nil {
		return productName, "", err
	}

	return productName, warehouseName, nil
}
