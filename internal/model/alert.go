package model

import (
	"fmt"
	"time"
)

// AlertType threshold alert category
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
)

// AlertSeverity alert severity level
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert threshold alert raised for a (product, warehouse) pair.
// The ID is deterministic per (product, warehouse, type): a new alert
// for the same tuple replaces the previous one instead of stacking up.
type Alert struct {
	ID                string        `json:"id"`
	Type              AlertType     `json:"type"`
	Severity          AlertSeverity `json:"severity"`
	ProductID         string        `json:"product_id"`
	WarehouseID       string        `json:"warehouse_id"`
	CurrentStock      int           `json:"current_stock"`
	Threshold         *int          `json:"threshold,omitempty"`
	Message           string        `json:"message"`
	RecommendedAction string        `json:"recommended_action"`
	IsRead            bool          `json:"is_read"`
	IsResolved        bool          `json:"is_resolved"`
	CreatedAt         time.Time     `json:"created_at"`
}

// AlertID deterministic alert identity for a (product, warehouse, type) tuple
func AlertID(productID, warehouseID string, alertType AlertType) string {
	return fmt.Sprintf("%s:%s:%s", productID, warehouseID, alertType)
}

// Key the dedup key for the active-alerts set
func (a *Alert) Key() string {
	return AlertID(a.ProductID, a.WarehouseID, a.Type)
}
