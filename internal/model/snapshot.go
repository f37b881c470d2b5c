package model

import (
	"time"
)

// StockStatus coarse classification of an available quantity
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// StockSnapshot aggregated stock counts for a product within a warehouse.
// Derived data: recomputed from stock units on demand or fetched
// pre-aggregated from the store, never written back by this service.
type StockSnapshot struct {
	ProductID           string    `json:"product_id"`
	WarehouseID         string    `json:"warehouse_id"`
	ProductName         string    `json:"product_name,omitempty"`
	WarehouseName       string    `json:"warehouse_name,omitempty"`
	TotalQuantity       int       `json:"total_quantity"`
	AvailableQuantity   int       `json:"available_quantity"`
	SoldQuantity        int       `json:"sold_quantity"`
	TransferredQuantity int       `json:"transferred_quantity"`
	ClaimedQuantity     int       `json:"claimed_quantity"`
	DamagedQuantity     int       `json:"damaged_quantity"`
	ReservedQuantity    int       `json:"reserved_quantity"`
	AverageCost         float64   `json:"average_cost"`
	AvailableValue      float64   `json:"available_value"`
	ComputedAt          time.Time `json:"computed_at"`
}

// DisplayProductName product name with ID fallback
func (s *StockSnapshot) DisplayProductName() string {
	if s.ProductName != "" {
		return s.ProductName
	}
	return s.ProductID
}

// DisplayWarehouseName warehouse name with ID fallback
func (s *StockSnapshot) DisplayWarehouseName() string {
	if s.WarehouseName != "" {
		return s.WarehouseName
	}
	return s.WarehouseID
}
