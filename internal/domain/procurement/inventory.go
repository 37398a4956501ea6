package procurement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovementKind tells the inventory side which way stock moves
type StockMovementKind string

const (
	// StockMovementReceipt adds accepted goods to stock
	StockMovementReceipt StockMovementKind = "receipt"
	// StockMovementReturn removes goods sent back to the supplier
	StockMovementReturn StockMovementKind = "return"
)

// StockMovementLine is one product quantity moving in or out of stock
type StockMovementLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// StockMovement is what a goods receipt or completed return hands to the
// inventory side
type StockMovement struct {
	Kind         StockMovementKind   `json:"kind"`
	OrderID      uuid.UUID           `json:"order_id"`
	OrderNumber  string              `json:"order_number"`
	SourceID     uuid.UUID           `json:"source_id"`
	SourceNumber string              `json:"source_number"`
	OccurredAt   time.Time           `json:"occurred_at"`
	Lines        []StockMovementLine `json:"lines"`
}

// Reference returns a human-readable reference for stock ledgers
func (m StockMovement) Reference() string {
	return "PO:" + m.OrderNumber + ":" + m.SourceNumber
}

// InventoryUpdater applies stock movements produced by receiving and
// returns. Stock itself is owned elsewhere.
type InventoryUpdater interface {
	ApplyStockMovement(ctx context.Context, movement StockMovement) error
}
