package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrder represents a purchase order aggregate root.
// It owns its line items, goods receipts, returns and payments, and tracks
// the order from draft through receipt of goods.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber          string
	SupplierID           uuid.UUID
	SupplierName         string
	Status               OrderStatus
	Items                []PurchaseOrderLineItem
	Receipts             []GoodsReceiptRecord
	Returns              []PurchaseReturnRecord
	Payments             []PaymentRecord
	Subtotal             decimal.Decimal
	DiscountAmount       decimal.Decimal
	TaxAmount            decimal.Decimal
	ShippingCost         decimal.Decimal
	TotalAmount          decimal.Decimal
	PaidAmount           decimal.Decimal
	BalanceAmount        decimal.Decimal
	PaymentStatus        PaymentStatus
	ExpectedDeliveryDate *time.Time
	ActualDeliveryDate   *time.Time
	Notes                string
	SubmittedAt          *time.Time
	ApprovedAt           *time.Time
	OrderedAt            *time.Time
	CancelledAt          *time.Time
	CancelReason         string
}

// NewOrderInput carries the fields needed to create an order
type NewOrderInput struct {
	SupplierID           uuid.UUID
	SupplierName         string
	Items                []LineItemInput
	ShippingCost         decimal.Decimal
	ExpectedDeliveryDate *time.Time
	Notes                string
}

// NewPurchaseOrder creates a new purchase order in draft status with its
// initial totals computed.
func NewPurchaseOrder(orderNumber string, input NewOrderInput) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewValidationError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewValidationError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if input.SupplierID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if len(input.Items) == 0 {
		return nil, shared.NewValidationError("NO_ITEMS", "Purchase order must contain at least one item")
	}
	if input.ShippingCost.IsNegative() {
		return nil, shared.NewValidationError("INVALID_SHIPPING_COST",
			fmt.Sprintf("Shipping cost cannot be negative, got %s", input.ShippingCost))
	}

	items, err := buildLineItems(input.Items, nil)
	if err != nil {
		return nil, err
	}

	order := &PurchaseOrder{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		OrderNumber:          orderNumber,
		SupplierID:           input.SupplierID,
		SupplierName:         strings.TrimSpace(input.SupplierName),
		Status:               OrderStatusDraft,
		Items:                items,
		Receipts:             make([]GoodsReceiptRecord, 0),
		Returns:              make([]PurchaseReturnRecord, 0),
		Payments:             make([]PaymentRecord, 0),
		ShippingCost:         input.ShippingCost,
		PaidAmount:           decimal.Zero,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		Notes:                input.Notes,
	}
	order.recalculateTotals()

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))

	return order, nil
}

// buildLineItems validates inputs and builds line items. Existing lines
// referenced by ID keep their identity; nothing is received on the result.
func buildLineItems(inputs []LineItemInput, existing []PurchaseOrderLineItem) ([]PurchaseOrderLineItem, error) {
	known := make(map[uuid.UUID]bool, len(existing))
	for _, item := range existing {
		known[item.ID] = true
	}

	items := make([]PurchaseOrderLineItem, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		if in.ID != nil && *in.ID != uuid.Nil {
			if !known[*in.ID] {
				return nil, shared.NewNotFoundError("LINE_ITEM_NOT_FOUND",
					fmt.Sprintf("Line item %s does not exist on order", *in.ID)).WithSubject(in.ID.String())
			}
			if seen[*in.ID] {
				return nil, shared.NewValidationError("DUPLICATE_LINE_ITEM",
					fmt.Sprintf("Line item %s appears more than once", *in.ID)).WithSubject(in.ID.String())
			}
			seen[*in.ID] = true
		}
		item, err := NewLineItem(in)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// OrderPatch lists the fields an update may change. Nil fields are left alone.
type OrderPatch struct {
	SupplierName         *string
	ExpectedDeliveryDate *time.Time
	Notes                *string
	ShippingCost         *decimal.Decimal
	Items                *[]LineItemInput
}

// Update applies a patch to the order. Received and cancelled orders are
// immutable. Line items can only be replaced before any receipt is recorded,
// including fully rejected ones. Totals and payment status are recomputed;
// the new total may not fall below what has been paid, and a fully paid
// order may not grow.
func (o *PurchaseOrder) Update(patch OrderPatch) error {
	if o.Status.IsTerminal() {
		return shared.NewInvalidTransitionError("ORDER_IMMUTABLE",
			fmt.Sprintf("Cannot update order %s in %s status", o.OrderNumber, o.Status))
	}

	items := o.Items
	if patch.Items != nil {
		if !o.Status.IsPreReceiving() || len(o.Receipts) > 0 {
			return shared.NewInvalidTransitionError("ITEMS_LOCKED",
				fmt.Sprintf("Cannot change items of order %s after goods have been received", o.OrderNumber))
		}
		if len(*patch.Items) == 0 {
			return shared.NewValidationError("NO_ITEMS", "Purchase order must contain at least one item")
		}
		built, err := buildLineItems(*patch.Items, o.Items)
		if err != nil {
			return err
		}
		items = built
	}

	shipping := o.ShippingCost
	if patch.ShippingCost != nil {
		if patch.ShippingCost.IsNegative() {
			return shared.NewValidationError("INVALID_SHIPPING_COST",
				fmt.Sprintf("Shipping cost cannot be negative, got %s", *patch.ShippingCost))
		}
		shipping = *patch.ShippingCost
	}

	lines := make([]LinePricing, len(items))
	for i := range items {
		lines[i] = items[i].Pricing()
	}
	totals := CalculateTotals(lines, shipping)
	if totals.TotalAmount.LessThan(o.PaidAmount) {
		return shared.NewValidationError("TOTAL_BELOW_PAID",
			fmt.Sprintf("New total %s would be less than the amount already paid %s", totals.TotalAmount, o.PaidAmount))
	}
	// payment status never moves back from paid
	if o.PaymentStatus == PaymentStatusPaid && totals.TotalAmount.GreaterThan(o.PaidAmount) {
		return shared.NewValidationError("TOTAL_ABOVE_PAID_ORDER",
			fmt.Sprintf("Order %s is fully paid; new total %s would exceed the amount paid %s", o.OrderNumber, totals.TotalAmount, o.PaidAmount))
	}

	// All checks passed; apply.
	o.Items = items
	o.ShippingCost = shipping
	if patch.SupplierName != nil {
		o.SupplierName = strings.TrimSpace(*patch.SupplierName)
	}
	if patch.ExpectedDeliveryDate != nil {
		d := *patch.ExpectedDeliveryDate
		o.ExpectedDeliveryDate = &d
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	o.recalculateTotals()
	o.UpdatedAt = time.Now()

	return nil
}

// Submit moves a draft order to pending approval
func (o *PurchaseOrder) Submit() error {
	if err := o.guardManualTransition(OrderStatusPending); err != nil {
		return err
	}
	now := time.Now()
	o.SubmittedAt = &now
	o.setStatus(OrderStatusPending, "", now)
	return nil
}

// Approve approves a pending order
func (o *PurchaseOrder) Approve() error {
	if err := o.guardManualTransition(OrderStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	o.ApprovedAt = &now
	o.setStatus(OrderStatusApproved, "", now)
	return nil
}

// MarkOrdered records that an approved order was sent to the supplier
func (o *PurchaseOrder) MarkOrdered() error {
	if err := o.guardManualTransition(OrderStatusOrdered); err != nil {
		return err
	}
	now := time.Now()
	o.OrderedAt = &now
	o.setStatus(OrderStatusOrdered, "", now)
	return nil
}

// Cancel abandons the order. Allowed only before any goods are received.
func (o *PurchaseOrder) Cancel(reason string) error {
	if err := o.guardManualTransition(OrderStatusCancelled); err != nil {
		return err
	}
	if o.hasReceivedAnyGoods() {
		return shared.NewInvalidTransitionError("ALREADY_RECEIVED",
			fmt.Sprintf("Cannot cancel order %s after goods have been received", o.OrderNumber))
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = reason
	o.setStatus(OrderStatusCancelled, reason, now)
	return nil
}

// ChangeStatus performs a manual status change. partial and received can
// only be reached by receiving goods and are always rejected here.
func (o *PurchaseOrder) ChangeStatus(target OrderStatus, reason string) error {
	switch target {
	case OrderStatusPending:
		return o.Submit()
	case OrderStatusApproved:
		return o.Approve()
	case OrderStatusOrdered:
		return o.MarkOrdered()
	case OrderStatusCancelled:
		return o.Cancel(reason)
	case OrderStatusPartial, OrderStatusReceived:
		return shared.NewInvalidTransitionError("RECEIVING_ONLY_STATUS",
			fmt.Sprintf("Status %s can only be reached by receiving goods", target))
	case OrderStatusDraft:
		return shared.NewInvalidTransitionError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot change order %s from %s to %s", o.OrderNumber, o.Status, target))
	}
	return shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Invalid order status: %s", target))
}

func (o *PurchaseOrder) guardManualTransition(target OrderStatus) error {
	if o.Status.IsTerminal() {
		return shared.NewInvalidTransitionError("ORDER_TERMINAL",
			fmt.Sprintf("Order %s is %s and cannot change status", o.OrderNumber, o.Status))
	}
	if !o.Status.CanManuallyTransitionTo(target) {
		return shared.NewInvalidTransitionError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot change order %s from %s to %s", o.OrderNumber, o.Status, target))
	}
	return nil
}

func (o *PurchaseOrder) setStatus(target OrderStatus, reason string, at time.Time) {
	previous := o.Status
	o.Status = target
	o.UpdatedAt = at
	o.AddDomainEvent(NewStatusChangedEvent(o, previous, reason))
}

// recalculateTotals recomputes every line total, the order totals, the
// balance and the payment status.
func (o *PurchaseOrder) recalculateTotals() {
	lines := make([]LinePricing, len(o.Items))
	for i := range o.Items {
		o.Items[i].recalculate()
		lines[i] = o.Items[i].Pricing()
	}
	totals := CalculateTotals(lines, o.ShippingCost)
	o.Subtotal = totals.Subtotal
	o.DiscountAmount = totals.DiscountAmount
	o.TaxAmount = totals.TaxAmount
	o.TotalAmount = totals.TotalAmount
	o.refreshBalance()
}

func (o *PurchaseOrder) refreshBalance() {
	o.BalanceAmount = CalculateBalance(o.TotalAmount, o.PaidAmount)
	o.PaymentStatus = DerivePaymentStatus(o.TotalAmount, o.PaidAmount)
}

func (o *PurchaseOrder) hasReceivedAnyGoods() bool {
	for _, item := range o.Items {
		if item.ReceivedQuantity.IsPositive() {
			return true
		}
	}
	return false
}

// GetItem returns the line item with the given ID, or nil
func (o *PurchaseOrder) GetItem(itemID uuid.UUID) *PurchaseOrderLineItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// TotalOrderedQuantity returns the ordered quantity across all lines
func (o *PurchaseOrder) TotalOrderedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.OrderedQuantity)
	}
	return total
}

// TotalReceivedQuantity returns the received quantity across all lines
func (o *PurchaseOrder) TotalReceivedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.ReceivedQuantity)
	}
	return total
}

// ReceiveProgress returns the received share of the ordered quantity in percent
func (o *PurchaseOrder) ReceiveProgress() decimal.Decimal {
	ordered := o.TotalOrderedQuantity()
	if ordered.IsZero() {
		return decimal.Zero
	}
	return o.TotalReceivedQuantity().Div(ordered).Mul(hundred)
}

// IsTerminal reports whether the order is received or cancelled
func (o *PurchaseOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}
