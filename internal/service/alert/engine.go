package alert

import (
	"fmt"
	"sync"
	"time"

	"stockwatch/internal/model"
)

// Thresholds process-wide alert thresholds
type Thresholds struct {
	LowStock   int `json:"low_stock"`
	OutOfStock int `json:"out_of_stock"`
	Overstock  int `json:"overstock"`
}

// DefaultThresholds returns the built-in threshold values
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowStock:   10,
		OutOfStock: 0,
		Overstock:  1000,
	}
}

// ThresholdPatch partial threshold update; nil fields are left unchanged
type ThresholdPatch struct {
	LowStock   *int `json:"low_stock,omitempty"`
	OutOfStock *int `json:"out_of_stock,omitempty"`
	Overstock  *int `json:"overstock,omitempty"`
}

// Settings mutable threshold configuration. Read far more often than
// written; last writer wins, no transactional guarantees. Changing
// thresholds does not re-evaluate alerts already raised.
type Settings struct {
	mu sync.RWMutex
	t  Thresholds
}

// NewSettings creates threshold settings
func NewSettings(t Thresholds) *Settings {
	return &Settings{t: t}
}

// Thresholds returns the current threshold values
func (s *Settings) Thresholds() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t
}

// Update applies a partial update and returns the resulting thresholds
func (s *Settings) Update(patch ThresholdPatch) Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.LowStock != nil {
		s.t.LowStock = *patch.LowStock
	}
	if patch.OutOfStock != nil {
		s.t.OutOfStock = *patch.OutOfStock
	}
	if patch.Overstock != nil {
		s.t.Overstock = *patch.Overstock
	}
	return s.t
}

// Evaluate produces threshold alerts for a stock snapshot. At most one
// alert is returned per snapshot; out-of-stock takes precedence over
// low-stock. A nil snapshot yields no alerts.
func Evaluate(snapshot *model.StockSnapshot, t Thresholds) []model.Alert {
	if snapshot == nil {
		return nil
	}

	available := snapshot.AvailableQuantity

	if available <= t.OutOfStock {
		return []model.Alert{{
			ID:           model.AlertID(snapshot.ProductID, snapshot.WarehouseID, model.AlertTypeOutOfStock),
			Type:         model.AlertTypeOutOfStock,
			Severity:     model.SeverityCritical,
			ProductID:    snapshot.ProductID,
			WarehouseID:  snapshot.WarehouseID,
			CurrentStock: available,
			Message: fmt.Sprintf("%s is out of stock at %s",
				snapshot.DisplayProductName(), snapshot.DisplayWarehouseName()),
			RecommendedAction: "Create a purchase order or transfer stock from another warehouse",
			CreatedAt:         time.Now(),
		}}
	}

	if available <= t.LowStock {
		threshold := t.LowStock
		return []model.Alert{{
			ID:           model.AlertID(snapshot.ProductID, snapshot.WarehouseID, model.AlertTypeLowStock),
			Type:         model.AlertTypeLowStock,
			Severity:     model.SeverityWarning,
			ProductID:    snapshot.ProductID,
			WarehouseID:  snapshot.WarehouseID,
			CurrentStock: available,
			Threshold:    &threshold,
			Message: fmt.Sprintf("%s is running low at %s (%d left)",
				snapshot.DisplayProductName(), snapshot.DisplayWarehouseName(), available),
			RecommendedAction: "Schedule replenishment before stock runs out",
			CreatedAt:         time.Now(),
		}}
	}

	return nil
}
