package model

import (
	"time"
)

// MovementType kind of stock movement
type MovementType string

const (
	MovementTypeInbound    MovementType = "inbound"
	MovementTypeOutbound   MovementType = "outbound"
	MovementTypeTransfer   MovementType = "transfer"
	MovementTypeReceive    MovementType = "receive"
	MovementTypeAdjustment MovementType = "adjustment"
)

// StockMovement stock movement model
type StockMovement struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    string       `gorm:"type:varchar(36);not null;index" json:"product_id"`
	WarehouseID  string       `gorm:"type:varchar(36);not null;index" json:"warehouse_id"`
	MovementType MovementType `gorm:"type:varchar(16);not null" json:"movement_type"`
	Quantity     int          `gorm:"type:int;not null" json:"quantity"`
	Reference    *string      `gorm:"type:varchar(64);index" json:"reference,omitempty"`
	Notes        *string      `gorm:"type:varchar(255)" json:"notes,omitempty"`
	CreatedAt    time.Time    `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName set name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// IsInbound check if movement adds stock to the warehouse
func (m *StockMovement) IsInbound() bool {
	return m.MovementType == MovementTypeInbound || m.MovementType == MovementTypeReceive
}
