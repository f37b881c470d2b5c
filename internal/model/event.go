package model

import (
	"time"
)

// EventType change event category
type EventType string

const (
	EventMovementLogged  EventType = "movement_logged"
	EventUnitUpdated     EventType = "unit_updated"
	EventSnapshotChanged EventType = "snapshot_changed"
	EventAlertTriggered  EventType = "alert_triggered"
)

// ChangeEvent is the closed set of domain events flowing out of the
// change feed. Events are immutable once constructed; consumers must
// not mutate them. The unexported method keeps the set closed so type
// switches stay exhaustive.
type ChangeEvent interface {
	EventType() EventType
	OccurredAt() time.Time
	// RoutingKey returns the optional (warehouseID, productID) pair the
	// event relates to; either may be empty.
	RoutingKey() (string, string)

	sealed()
}

// EventMeta fields common to every change event
type EventMeta struct {
	EventID     int64     `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	WarehouseID string    `json:"warehouse_id,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
}

// OccurredAt implements ChangeEvent
func (m EventMeta) OccurredAt() time.Time {
	return m.Timestamp
}

// RoutingKey implements ChangeEvent
func (m EventMeta) RoutingKey() (string, string) {
	return m.WarehouseID, m.ProductID
}

func (EventMeta) sealed() {}

// MovementLogged a stock movement was recorded
type MovementLogged struct {
	EventMeta
	MovementType MovementType `json:"movement_type"`
	Quantity     int          `json:"quantity"`
	Reference    *string      `json:"reference,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
}

// EventType implements ChangeEvent
func (MovementLogged) EventType() EventType { return EventMovementLogged }

// UnitUpdated a serial-numbered unit changed
type UnitUpdated struct {
	EventMeta
	Unit StockUnit `json:"unit"`
}

// EventType implements ChangeEvent
func (UnitUpdated) EventType() EventType { return EventUnitUpdated }

// SnapshotChanged an aggregate stock summary changed or was recomputed
type SnapshotChanged struct {
	EventMeta
	Snapshot StockSnapshot `json:"snapshot"`
}

// EventType implements ChangeEvent
func (SnapshotChanged) EventType() EventType { return EventSnapshotChanged }

// AlertTriggered a threshold alert was raised
type AlertTriggered struct {
	EventMeta
	Alert Alert `json:"alert"`
}

// EventType implements ChangeEvent
func (AlertTriggered) EventType() EventType { return EventAlertTriggered }
