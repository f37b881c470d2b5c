package stock

import (
	"time"

	"stockwatch/internal/model"
)

// DefaultLowStockThreshold available quantity at or below which a
// product counts as low stock when no override is given.
const DefaultLowStockThreshold = 10

// Calculation aggregate counts derived from a collection of stock units
type Calculation struct {
	TotalQuantity       int     `json:"total_quantity"`
	AvailableQuantity   int     `json:"available_quantity"`
	SoldQuantity        int     `json:"sold_quantity"`
	TransferredQuantity int     `json:"transferred_quantity"`
	ClaimedQuantity     int     `json:"claimed_quantity"`
	DamagedQuantity     int     `json:"damaged_quantity"`
	ReservedQuantity    int     `json:"reserved_quantity"`
	AverageCost         float64 `json:"average_cost"`
	AvailableValue      float64 `json:"available_value"`
}

// Calculate folds a collection of units into aggregate counts. Pure:
// no I/O, never errors, empty input yields the zero Calculation.
// TotalQuantity always equals len(units).
func Calculate(units []*model.StockUnit) Calculation {
	var calc Calculation
	var totalCost float64

	for _, unit := range units {
		calc.TotalQuantity++
		totalCost += unit.UnitCost

		switch unit.Status {
		case model.UnitStatusAvailable:
			calc.AvailableQuantity++
			calc.AvailableValue += unit.UnitCost
		case model.UnitStatusSold:
			calc.SoldQuantity++
		case model.UnitStatusTransferred:
			calc.TransferredQuantity++
		case model.UnitStatusClaimed:
			calc.ClaimedQuantity++
		case model.UnitStatusDamaged:
			calc.DamagedQuantity++
		case model.UnitStatusReserved:
			calc.ReservedQuantity++
		}
	}

	if calc.TotalQuantity > 0 {
		calc.AverageCost = totalCost / float64(calc.TotalQuantity)
	}

	return calc
}

// Snapshot builds a stock snapshot for a (product, warehouse) pair from
// a calculation result.
func (c Calculation) Snapshot(productID, warehouseID string) model.StockSnapshot {
	return model.StockSnapshot{
		ProductID:           productID,
		WarehouseID:         warehouseID,
		TotalQuantity:       c.TotalQuantity,
		AvailableQuantity:   c.AvailableQuantity,
		SoldQuantity:        c.SoldQuantity,
		TransferredQuantity: c.TransferredQuantity,
		ClaimedQuantity:     c.ClaimedQuantity,
		DamagedQuantity:     c.DamagedQuantity,
		ReservedQuantity:    c.ReservedQuantity,
		AverageCost:         c.AverageCost,
		AvailableValue:      c.AvailableValue,
		ComputedAt:          time.Now(),
	}
}

// Status classifies an available quantity using the default low-stock
// threshold.
func Status(available int) model.StockStatus {
	return StatusWithThreshold(available, DefaultLowStockThreshold)
}

// StatusWithThreshold classifies an available quantity against an
// explicit low-stock threshold.
func StatusWithThreshold(available, lowThreshold int) model.StockStatus {
	switch {
	case available <= 0:
		return model.StockStatusOutOfStock
	case available <= lowThreshold:
		return model.StockStatusLowStock
	default:
		return model.StockStatusInStock
	}
}
