package procurement

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"go.uber.org/zap"
)

// GoodsReceivedHandler handles GoodsReceivedEvent and hands the accepted
// quantities to the inventory side
type GoodsReceivedHandler struct {
	inventory procurement.InventoryUpdater
	logger    *zap.Logger
}

// NewGoodsReceivedHandler creates a new handler for goods received events
func NewGoodsReceivedHandler(inventory procurement.InventoryUpdater, logger *zap.Logger) *GoodsReceivedHandler {
	return &GoodsReceivedHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *GoodsReceivedHandler) EventTypes() []string {
	return []string{procurement.EventTypeGoodsReceived}
}

// Handle processes a GoodsReceivedEvent
func (h *GoodsReceivedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	receivedEvent, ok := event.(*procurement.GoodsReceivedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", procurement.EventTypeGoodsReceived),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			procurement.EventTypeGoodsReceived, event.EventType())
	}

	movement := StockMovementFromReceipt(receivedEvent)
	if len(movement.Lines) == 0 {
		// Fully rejected receipt: nothing enters stock.
		h.logger.Info("goods receipt had no accepted quantity",
			zap.String("order_id", receivedEvent.OrderID.String()),
			zap.String("receipt_number", receivedEvent.ReceiptNumber),
		)
		return nil
	}

	if err := h.inventory.ApplyStockMovement(ctx, movement); err != nil {
		h.logger.Error("failed to hand goods receipt to inventory",
			zap.String("order_id", receivedEvent.OrderID.String()),
			zap.String("receipt_number", receivedEvent.ReceiptNumber),
			zap.Error(err),
		)
		return fmt.Errorf("apply stock movement for %s: %w", receivedEvent.ReceiptNumber, err)
	}

	h.logger.Info("goods receipt handed to inventory",
		zap.String("order_id", receivedEvent.OrderID.String()),
		zap.String("receipt_number", receivedEvent.ReceiptNumber),
		zap.Int("line_count", len(movement.Lines)),
	)
	return nil
}

// StockMovementFromReceipt builds the inbound stock movement for a receipt.
// Lines without an accepted quantity are left out.
func StockMovementFromReceipt(e *procurement.GoodsReceivedEvent) procurement.StockMovement {
	lines := make([]procurement.StockMovementLine, 0, len(e.Items))
	for _, item := range e.Items {
		if !item.QuantityAccepted.IsPositive() {
			continue
		}
		lines = append(lines, procurement.StockMovementLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.QuantityAccepted,
			UnitCost:    item.UnitPrice,
			BatchNumber: item.BatchNumber,
			ExpiryDate:  item.ExpiryDate,
		})
	}
	return procurement.StockMovement{
		Kind:         procurement.StockMovementReceipt,
		OrderID:      e.OrderID,
		OrderNumber:  e.OrderNumber,
		SourceID:     e.ReceiptID,
		SourceNumber: e.ReceiptNumber,
		OccurredAt:   e.ReceivedDate,
		Lines:        lines,
	}
}

// ReturnCompletedHandler removes returned goods from stock once a
// purchase return is completed
type ReturnCompletedHandler struct {
	inventory procurement.InventoryUpdater
	logger    *zap.Logger
}

// NewReturnCompletedHandler creates a new handler for return status events
func NewReturnCompletedHandler(inventory procurement.InventoryUpdater, logger *zap.Logger) *ReturnCompletedHandler {
	return &ReturnCompletedHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReturnCompletedHandler) EventTypes() []string {
	return []string{procurement.EventTypeReturnStatusChanged}
}

// Handle processes a ReturnStatusChangedEvent, acting only on completion
func (h *ReturnCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*procurement.ReturnStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			procurement.EventTypeReturnStatusChanged, event.EventType())
	}
	if changed.ToStatus != procurement.ReturnStatusCompleted {
		return nil
	}

	lines := make([]procurement.StockMovementLine, 0, len(changed.Items))
	for _, item := range changed.Items {
		unitCost := item.Amount
		if item.Quantity.IsPositive() {
			unitCost = item.Amount.Div(item.Quantity)
		}
		lines = append(lines, procurement.StockMovementLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitCost:    unitCost,
		})
	}

	movement := procurement.StockMovement{
		Kind:         procurement.StockMovementReturn,
		OrderID:      changed.OrderID,
		OrderNumber:  changed.OrderNumber,
		SourceID:     changed.ReturnID,
		SourceNumber: changed.ReturnNumber,
		OccurredAt:   changed.OccurredAt(),
		Lines:        lines,
	}
	if err := h.inventory.ApplyStockMovement(ctx, movement); err != nil {
		h.logger.Error("failed to hand completed return to inventory",
			zap.String("order_id", changed.OrderID.String()),
			zap.String("return_number", changed.ReturnNumber),
			zap.Error(err),
		)
		return fmt.Errorf("apply stock movement for %s: %w", changed.ReturnNumber, err)
	}
	return nil
}

// LoggingInventoryUpdater only logs stock movements. It is used when no
// task queue is configured.
type LoggingInventoryUpdater struct {
	logger *zap.Logger
}

// NewLoggingInventoryUpdater creates a new LoggingInventoryUpdater
func NewLoggingInventoryUpdater(logger *zap.Logger) *LoggingInventoryUpdater {
	return &LoggingInventoryUpdater{logger: logger}
}

// ApplyStockMovement logs each line of the movement
func (u *LoggingInventoryUpdater) ApplyStockMovement(_ context.Context, movement procurement.StockMovement) error {
	for _, line := range movement.Lines {
		u.logger.Info("stock movement",
			zap.String("kind", string(movement.Kind)),
			zap.String("reference", movement.Reference()),
			zap.String("product_id", line.ProductID.String()),
			zap.String("quantity", line.Quantity.String()),
			zap.String("unit_cost", line.UnitCost.String()),
			zap.String("batch_number", line.BatchNumber),
		)
	}
	return nil
}

var (
	_ shared.EventHandler          = (*GoodsReceivedHandler)(nil)
	_ shared.EventHandler          = (*ReturnCompletedHandler)(nil)
	_ procurement.InventoryUpdater = (*LoggingInventoryUpdater)(nil)
)
