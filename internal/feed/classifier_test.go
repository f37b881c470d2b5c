package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/model"
	"stockwatch/pkg/snowflake"
)

func newTestClassifier(t *testing.T, table TableKind) *Classifier {
	ids, err := snowflake.NewIDGenerator(1)
	require.NoError(t, err)
	return NewClassifier(table, ids)
}

func rawInsert(t *testing.T, record interface{}) RawChange {
	data, err := json.Marshal(record)
	require.NoError(t, err)
	return RawChange{Kind: EventInsert, New: data}
}

func TestClassify_Movement(t *testing.T) {
	c := newTestClassifier(t, TableMovements)

	change := rawInsert(t, model.StockMovement{
		ProductID:    "prod-1",
		WarehouseID:  "wh-1",
		MovementType: model.MovementTypeOutbound,
		Quantity:     5,
	})

	event, err := c.Classify(change)
	require.NoError(t, err)

	logged, ok := event.(model.MovementLogged)
	require.True(t, ok)
	assert.Equal(t, model.EventMovementLogged, logged.EventType())
	assert.Equal(t, model.MovementTypeOutbound, logged.MovementType)
	assert.Equal(t, 5, logged.Quantity)
	assert.NotZero(t, logged.EventID)
	assert.False(t, logged.OccurredAt().IsZero())

	warehouseID, productID := logged.RoutingKey()
	assert.Equal(t, "wh-1", warehouseID)
	assert.Equal(t, "prod-1", productID)
}

func TestClassify_ReceiveLogDefaultsType(t *testing.T) {
	c := newTestClassifier(t, TableReceiveLog)

	change := rawInsert(t, map[string]interface{}{
		"product_id":   "prod-1",
		"warehouse_id": "wh-1",
		"quantity":     10,
	})

	event, err := c.Classify(change)
	require.NoError(t, err)

	logged := event.(model.MovementLogged)
	assert.Equal(t, model.MovementTypeReceive, logged.MovementType)
}

func TestClassify_TransferDefaultsType(t *testing.T) {
	c := newTestClassifier(t, TableTransfers)

	change := rawInsert(t, map[string]interface{}{
		"product_id":   "prod-1",
		"warehouse_id": "wh-2",
		"quantity":     3,
	})

	event, err := c.Classify(change)
	require.NoError(t, err)

	logged := event.(model.MovementLogged)
	assert.Equal(t, model.MovementTypeTransfer, logged.MovementType)
}

func TestClassify_Unit(t *testing.T) {
	c := newTestClassifier(t, TableUnits)

	change := rawInsert(t, model.StockUnit{
		SerialNumber: "SN-001",
		ProductID:    "prod-1",
		WarehouseID:  "wh-1",
		Status:       model.UnitStatusSold,
	})

	event, err := c.Classify(change)
	require.NoError(t, err)

	updated, ok := event.(model.UnitUpdated)
	require.True(t, ok)
	assert.Equal(t, model.EventUnitUpdated, updated.EventType())
	assert.Equal(t, "SN-001", updated.Unit.SerialNumber)
	assert.Equal(t, model.UnitStatusSold, updated.Unit.Status)
}

func TestClassify_Snapshot(t *testing.T) {
	c := newTestClassifier(t, TableSnapshots)

	change := rawInsert(t, model.StockSnapshot{
		ProductID:         "prod-1",
		WarehouseID:       "wh-1",
		AvailableQuantity: 42,
	})

	event, err := c.Classify(change)
	require.NoError(t, err)

	changed, ok := event.(model.SnapshotChanged)
	require.True(t, ok)
	assert.Equal(t, model.EventSnapshotChanged, changed.EventType())
	assert.Equal(t, 42, changed.Snapshot.AvailableQuantity)
}

func TestClassify_DeleteUsesOldRecord(t *testing.T) {
	c := newTestClassifier(t, TableUnits)

	data, err := json.Marshal(model.StockUnit{
		SerialNumber: "SN-GONE",
		ProductID:    "prod-1",
		WarehouseID:  "wh-1",
	})
	require.NoError(t, err)

	event, err := c.Classify(RawChange{Kind: EventDelete, Old: data})
	require.NoError(t, err)

	updated := event.(model.UnitUpdated)
	assert.Equal(t, "SN-GONE", updated.Unit.SerialNumber)
}

func TestClassify_MalformedPayload(t *testing.T) {
	c := newTestClassifier(t, TableMovements)

	_, err := c.Classify(RawChange{Kind: EventInsert, New: json.RawMessage(`{broken`)})
	assert.Error(t, err)
}

func TestClassify_UnknownTable(t *testing.T) {
	c := newTestClassifier(t, TableKind("nonsense"))

	_, err := c.Classify(RawChange{Kind: EventInsert, New: json.RawMessage(`{}`)})
	assert.Error(t, err)
}
