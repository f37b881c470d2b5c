package model

import (
	"time"
)

// UnitStatus lifecycle status of a serial-numbered unit
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusSold        UnitStatus = "sold"
	UnitStatusTransferred UnitStatus = "transferred"
	UnitStatusClaimed     UnitStatus = "claimed"
	UnitStatusDamaged     UnitStatus = "damaged"
	UnitStatusReserved    UnitStatus = "reserved"
)

// StockUnit individually tracked (serial-numbered) inventory item.
// Owned by the external store; this service only reads it.
type StockUnit struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SerialNumber string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"serial_number"`
	ProductID    string     `gorm:"type:varchar(36);not null;index:idx_product_warehouse" json:"product_id"`
	WarehouseID  string     `gorm:"type:varchar(36);not null;index:idx_product_warehouse" json:"warehouse_id"`
	UnitCost     float64    `gorm:"type:decimal(12,2);not null;default:0" json:"unit_cost"`
	Status       UnitStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ReceivedAt   *time.Time `gorm:"type:timestamp" json:"received_at,omitempty"`
	CreatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (StockUnit) TableName() string {
	return "stock_units"
}

// IsAvailable check if unit can still be sold
func (u *StockUnit) IsAvailable() bool {
	return u.Status == UnitStatusAvailable
}

// IsTerminal check if unit left the warehouse for good
func (u *StockUnit) IsTerminal() bool {
	return u.Status == UnitStatusSold || u.Status == UnitStatusTransferred || u.Status == UnitStatusClaimed
}
