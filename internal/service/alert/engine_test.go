package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/model"
)

func snapshot(available int) *model.StockSnapshot {
	return &model.StockSnapshot{
		ProductID:         "prod-1",
		WarehouseID:       "wh-1",
		ProductName:       "Widget",
		WarehouseName:     "Main",
		AvailableQuantity: available,
	}
}

func TestEvaluate_NilSnapshot(t *testing.T) {
	assert.Empty(t, Evaluate(nil, DefaultThresholds()))
}

func TestEvaluate_OutOfStock(t *testing.T) {
	alerts := Evaluate(snapshot(0), DefaultThresholds())

	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, model.AlertTypeOutOfStock, a.Type)
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.Equal(t, 0, a.CurrentStock)
	assert.Nil(t, a.Threshold)
	assert.Equal(t, "prod-1:wh-1:out_of_stock", a.ID)
	assert.Equal(t, "Widget is out of stock at Main", a.Message)
	assert.NotEmpty(t, a.RecommendedAction)
}

func TestEvaluate_LowStock(t *testing.T) {
	alerts := Evaluate(snapshot(3), Thresholds{LowStock: 5, OutOfStock: 0})

	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, model.AlertTypeLowStock, a.Type)
	assert.Equal(t, model.SeverityWarning, a.Severity)
	assert.Equal(t, 3, a.CurrentStock)
	require.NotNil(t, a.Threshold)
	assert.Equal(t, 5, *a.Threshold)
	assert.Equal(t, "Widget is running low at Main (3 left)", a.Message)
}

func TestEvaluate_OutOfStockTakesPrecedence(t *testing.T) {
	// Zero is below both thresholds; only the critical alert is raised.
	alerts := Evaluate(snapshot(0), Thresholds{LowStock: 5, OutOfStock: 0})

	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertTypeOutOfStock, alerts[0].Type)
}

func TestEvaluate_HealthyStock(t *testing.T) {
	assert.Empty(t, Evaluate(snapshot(100), DefaultThresholds()))
}

func TestEvaluate_MessageFallsBackToIDs(t *testing.T) {
	s := snapshot(0)
	s.ProductName = ""
	s.WarehouseName = ""

	alerts := Evaluate(s, DefaultThresholds())

	require.Len(t, alerts, 1)
	assert.Equal(t, "prod-1 is out of stock at wh-1", alerts[0].Message)
}

func TestSettings_Update(t *testing.T) {
	settings := NewSettings(DefaultThresholds())

	low := 25
	got := settings.Update(ThresholdPatch{LowStock: &low})

	assert.Equal(t, 25, got.LowStock)
	// Unset fields stay untouched.
	assert.Equal(t, DefaultThresholds().OutOfStock, got.OutOfStock)
	assert.Equal(t, DefaultThresholds().Overstock, got.Overstock)

	assert.Equal(t, got, settings.Thresholds())
}

func TestSettings_UpdateAllFields(t *testing.T) {
	settings := NewSettings(DefaultThresholds())

	low, out, over := 20, 2, 500
	got := settings.Update(ThresholdPatch{
		LowStock:   &low,
		OutOfStock: &out,
		Overstock:  &over,
	})

	assert.Equal(t, Thresholds{LowStock: 20, OutOfStock: 2, Overstock: 500}, got)
}
