package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"stockwatch/internal/model"
	"stockwatch/pkg/snowflake"
)

// Classifier maps raw change payloads of one table category into typed
// domain events. Classification itself is a pure mapping; the
// side-effecting follow-ups (recalculation notice, alert check) are
// chained by the subscription registry, never here.
type Classifier struct {
	table TableKind
	ids   *snowflake.IDGenerator
}

// NewClassifier creates a classifier bound to a table category
func NewClassifier(table TableKind, ids *snowflake.IDGenerator) *Classifier {
	return &Classifier{table: table, ids: ids}
}

// Table returns the table category this classifier is bound to
func (c *Classifier) Table() TableKind {
	return c.table
}

// Classify decodes a raw change into a typed domain event
func (c *Classifier) Classify(change RawChange) (model.ChangeEvent, error) {
	switch c.table {
	case TableMovements, TableReceiveLog, TableTransfers:
		return c.classifyMovement(change)
	case TableUnits:
		return c.classifyUnit(change)
	case TableSnapshots:
		return c.classifySnapshot(change)
	default:
		return nil, fmt.Errorf("unknown table kind: %s", c.table)
	}
}

func (c *Classifier) classifyMovement(change RawChange) (model.ChangeEvent, error) {
	var movement model.StockMovement
	if err := json.Unmarshal(c.record(change), &movement); err != nil {
		return nil, fmt.Errorf("failed to decode movement record: %w", err)
	}

	if movement.MovementType == "" {
		// Receive-log and transfer rows carry no explicit type column.
		switch c.table {
		case TableReceiveLog:
			movement.MovementType = model.MovementTypeReceive
		case TableTransfers:
			movement.MovementType = model.MovementTypeTransfer
		}
	}

	return model.MovementLogged{
		EventMeta:    c.meta(movement.WarehouseID, movement.ProductID),
		MovementType: movement.MovementType,
		Quantity:     movement.Quantity,
		Reference:    movement.Reference,
		Notes:        movement.Notes,
	}, nil
}

func (c *Classifier) classifyUnit(change RawChange) (model.ChangeEvent, error) {
	var unit model.StockUnit
	if err := json.Unmarshal(c.record(change), &unit); err != nil {
		return nil, fmt.Errorf("failed to decode unit record: %w", err)
	}

	return model.UnitUpdated{
		EventMeta: c.meta(unit.WarehouseID, unit.ProductID),
		Unit:      unit,
	}, nil
}

func (c *Classifier) classifySnapshot(change RawChange) (model.ChangeEvent, error) {
	var snapshot model.StockSnapshot
	if err := json.Unmarshal(c.record(change), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot record: %w", err)
	}

	return model.SnapshotChanged{
		EventMeta: c.meta(snapshot.WarehouseID, snapshot.ProductID),
		Snapshot:  snapshot,
	}, nil
}

// record picks the payload to decode: deletes only carry the old row
func (c *Classifier) record(change RawChange) json.RawMessage {
	if change.Kind == EventDelete && len(change.New) == 0 {
		return change.Old
	}
	return change.New
}

func (c *Classifier) meta(warehouseID, productID string) model.EventMeta {
	return model.EventMeta{
		EventID:     c.ids.NextID(),
		Timestamp:   time.Now(),
		WarehouseID: warehouseID,
		ProductID:   productID,
	}
}
