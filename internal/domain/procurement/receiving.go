package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptItemInput is one line of a goods-receipt submission
type ReceiptItemInput struct {
	LineItemID       uuid.UUID
	QuantityReceived decimal.Decimal
	QuantityAccepted decimal.Decimal
	QuantityRejected decimal.Decimal
	RejectionReason  string
	BatchNumber      string
	ExpiryDate       *time.Time
}

// ReceiveGoodsInput is a goods-receipt submission
type ReceiveGoodsInput struct {
	Items           []ReceiptItemInput
	ReceivedBy      string
	ReceivedDate    time.Time // zero means now
	Notes           string
	QualityApproved bool
}

// GoodsReceiptItem is an immutable line of a goods receipt
type GoodsReceiptItem struct {
	LineItemID       uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	QuantityReceived decimal.Decimal
	QuantityAccepted decimal.Decimal
	QuantityRejected decimal.Decimal
	RejectionReason  string
	BatchNumber      string
	ExpiryDate       *time.Time
}

// GoodsReceiptRecord records one receiving submission. Receipts are
// append-only; a recorded receipt is never modified.
type GoodsReceiptRecord struct {
	ID              uuid.UUID
	ReceiptNumber   string
	ReceivedDate    time.Time
	ReceivedBy      string
	Items           []GoodsReceiptItem
	QualityApproved bool
	Notes           string
	CreatedAt       time.Time
}

// TotalAccepted returns the sum of accepted quantities on the receipt
func (r *GoodsReceiptRecord) TotalAccepted() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.QuantityAccepted)
	}
	return total
}

// TotalRejected returns the sum of rejected quantities on the receipt
func (r *GoodsReceiptRecord) TotalRejected() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.QuantityRejected)
	}
	return total
}

// validateReceipt checks every precondition of a receiving submission
// against the current order state. It does not mutate the order.
func (o *PurchaseOrder) validateReceipt(input ReceiveGoodsInput) error {
	if o.Status.IsTerminal() {
		return shared.NewInvalidTransitionError("ORDER_TERMINAL",
			fmt.Sprintf("Cannot receive goods for order %s in %s status", o.OrderNumber, o.Status))
	}
	if !o.Status.CanReceive() {
		return shared.NewInvalidTransitionError("INVALID_STATE",
			fmt.Sprintf("Cannot receive goods for order %s in %s status, order must be approved first", o.OrderNumber, o.Status))
	}
	if len(input.Items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "Goods receipt must contain at least one item")
	}
	if input.ReceivedBy == "" {
		return shared.NewValidationError("INVALID_RECEIVER", "Receiver identity is required")
	}

	// Duplicate references to one line within a submission are summed
	// before the pending check.
	submitted := make(map[uuid.UUID]decimal.Decimal, len(input.Items))
	for _, ri := range input.Items {
		subject := ri.LineItemID.String()
		item := o.GetItem(ri.LineItemID)
		if item == nil {
			return shared.NewNotFoundError("LINE_ITEM_NOT_FOUND",
				fmt.Sprintf("Line item %s does not exist on order %s", subject, o.OrderNumber)).WithSubject(subject)
		}
		if !ri.QuantityReceived.IsPositive() {
			return shared.NewValidationError("INVALID_QUANTITY",
				fmt.Sprintf("Received quantity for line item %s must be positive, got %s", subject, ri.QuantityReceived)).WithSubject(subject)
		}
		if ri.QuantityAccepted.IsNegative() || ri.QuantityRejected.IsNegative() {
			return shared.NewValidationError("INVALID_QUANTITY",
				fmt.Sprintf("Accepted and rejected quantities for line item %s cannot be negative", subject)).WithSubject(subject)
		}
		if !ri.QuantityAccepted.Add(ri.QuantityRejected).Equal(ri.QuantityReceived) {
			return shared.NewValidationError("QUANTITY_MISMATCH",
				fmt.Sprintf("Line item %s: accepted (%s) + rejected (%s) must equal received (%s)",
					subject, ri.QuantityAccepted, ri.QuantityRejected, ri.QuantityReceived)).WithSubject(subject)
		}

		total := submitted[ri.LineItemID].Add(ri.QuantityReceived)
		pending := item.PendingQuantity()
		if total.GreaterThan(pending) {
			return shared.NewValidationError("EXCEEDS_PENDING_QUANTITY",
				fmt.Sprintf("Line item %s (%s): received quantity %s exceeds pending quantity %s",
					subject, item.ProductName, total, pending)).WithSubject(subject)
		}
		submitted[ri.LineItemID] = total
	}
	return nil
}

// ReceiveGoods applies one goods-receipt submission to the order. Every
// precondition is checked before any mutation, so a rejected submission
// leaves the order unchanged. Rejected units do not count toward
// fulfillment.
func (o *PurchaseOrder) ReceiveGoods(input ReceiveGoodsInput) (*GoodsReceiptRecord, error) {
	if err := o.validateReceipt(input); err != nil {
		return nil, err
	}

	now := time.Now()
	receivedDate := input.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = now
	}

	receipt := GoodsReceiptRecord{
		ID:              uuid.New(),
		ReceiptNumber:   fmt.Sprintf("GRN-%s-%02d", o.OrderNumber, len(o.Receipts)+1),
		ReceivedDate:    receivedDate,
		ReceivedBy:      input.ReceivedBy,
		Items:           make([]GoodsReceiptItem, 0, len(input.Items)),
		QualityApproved: input.QualityApproved,
		Notes:           input.Notes,
		CreatedAt:       now,
	}

	for _, ri := range input.Items {
		item := o.GetItem(ri.LineItemID)
		item.ReceivedQuantity = item.ReceivedQuantity.Add(ri.QuantityAccepted)
		receipt.Items = append(receipt.Items, GoodsReceiptItem{
			LineItemID:       ri.LineItemID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			QuantityReceived: ri.QuantityReceived,
			QuantityAccepted: ri.QuantityAccepted,
			QuantityRejected: ri.QuantityRejected,
			RejectionReason:  ri.RejectionReason,
			BatchNumber:      ri.BatchNumber,
			ExpiryDate:       ri.ExpiryDate,
		})
	}
	o.Receipts = append(o.Receipts, receipt)

	previous := o.Status
	o.Status = DeriveOrderStatus(o.Status, o.receiptProgress())
	if o.Status == OrderStatusReceived {
		delivered := receivedDate
		o.ActualDeliveryDate = &delivered
	}
	o.UpdatedAt = now

	o.AddDomainEvent(NewGoodsReceivedEvent(o, &receipt))
	if previous != o.Status {
		o.AddDomainEvent(NewStatusChangedEvent(o, previous, ""))
	}

	return &receipt, nil
}

func (o *PurchaseOrder) receiptProgress() []ReceiptProgress {
	progress := make([]ReceiptProgress, len(o.Items))
	for i := range o.Items {
		progress[i] = o.Items[i].Progress()
	}
	return progress
}
