package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"stockwatch/internal/model"
	"stockwatch/internal/repository"
	"stockwatch/internal/service/alert"
	"stockwatch/internal/service/stock"
	"stockwatch/internal/watch"
	"stockwatch/pkg/utils"
)

// WatchHandler stock watch HTTP handler
type WatchHandler struct {
	registry  *watch.Registry
	query     stock.QueryService
	movements repository.MovementRepository
}

// NewWatchHandler creates a stock watch handler
func NewWatchHandler(registry *watch.Registry, query stock.QueryService, movements repository.MovementRepository) *WatchHandler {
	return &WatchHandler{
		registry:  registry,
		query:     query,
		movements: movements,
	}
}

// GetStatus reports per-subscription feed connection status
func (h *WatchHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"subscriptions": h.registry.ConnectionStatus(),
	})
}

// GetThresholds returns the current alert thresholds
func (h *WatchHandler) GetThresholds(c *gin.Context) {
	utils.SuccessResponse(c, h.registry.AlertThresholds())
}

// UpdateThresholds applies a partial threshold update
func (h *WatchHandler) UpdateThresholds(c *gin.Context) {
	var patch alert.ThresholdPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.Error(c, utils.CodeInvalidParam, "invalid parameters: "+err.Error())
		return
	}

	if patch.LowStock != nil && *patch.LowStock < 0 {
		utils.Error(c, utils.CodeInvalidParam, "low_stock must not be negative")
		return
	}
	if patch.OutOfStock != nil && *patch.OutOfStock < 0 {
		utils.Error(c, utils.CodeInvalidParam, "out_of_stock must not be negative")
		return
	}

	utils.SuccessResponse(c, h.registry.UpdateAlertThresholds(patch))
}

// TransactionRequest stock transaction request
type TransactionRequest struct {
	ProductID    string             `json:"product_id" binding:"required"`
	WarehouseID  string             `json:"warehouse_id" binding:"required"`
	MovementType model.MovementType `json:"movement_type" binding:"required"`
	Quantity     int                `json:"quantity" binding:"required"`
	Reference    *string            `json:"reference,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
}

// CreateTransaction records a stock movement and re-broadcasts it to
// subscribers
func (h *WatchHandler) CreateTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.CodeInvalidParam, "invalid parameters: "+err.Error())
		return
	}

	switch req.MovementType {
	case model.MovementTypeInbound, model.MovementTypeOutbound,
		model.MovementTypeTransfer, model.MovementTypeReceive,
		model.MovementTypeAdjustment:
	default:
		utils.Error(c, utils.CodeInvalidMovement, "unknown movement type")
		return
	}

	movement := &model.StockMovement{
		ProductID:    req.ProductID,
		WarehouseID:  req.WarehouseID,
		MovementType: req.MovementType,
		Quantity:     req.Quantity,
		Reference:    req.Reference,
		Notes:        req.Notes,
	}

	if err := h.movements.Create(c.Request.Context(), movement); err != nil {
		utils.Error(c, utils.GetErrorCode(err), utils.GetErrorMessage(err))
		return
	}

	h.registry.ProcessTransaction(c.Request.Context(), movement)

	utils.SuccessResponse(c, gin.H{
		"movement_id": movement.ID,
	})
}

// GetSnapshot returns the aggregate stock snapshot for a product in a
// warehouse
func (h *WatchHandler) GetSnapshot(c *gin.Context) {
	productID := c.Query("product_id")
	warehouseID := c.Query("warehouse_id")
	if productID == "" || warehouseID == "" {
		utils.Error(c, utils.CodeInvalidParam, "product_id and warehouse_id are required")
		return
	}

	snapshot, err := h.query.GetSnapshot(c.Request.Context(), productID, warehouseID)
	if err != nil {
		if errors.Is(err, stock.ErrSnapshotNotFound) {
			utils.Error(c, utils.CodeSnapshotNotFound, "stock snapshot not found")
			return
		}
		utils.Error(c, utils.GetErrorCode(err), utils.GetErrorMessage(err))
		return
	}

	utils.SuccessResponse(c, snapshot)
}

// ListMovements lists recent movements of a product in a warehouse
func (h *WatchHandler) ListMovements(c *gin.Context) {
	productID := c.Query("product_id")
	warehouseID := c.Query("warehouse_id")
	if productID == "" || warehouseID == "" {
		utils.Error(c, utils.CodeInvalidParam, "product_id and warehouse_id are required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	movements, err := h.movements.ListRecent(c.Request.Context(), productID, warehouseID, limit)
	if err != nil {
		utils.Error(c, utils.GetErrorCode(err), utils.GetErrorMessage(err))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"list":  movements,
		"count": len(movements),
	})
}
