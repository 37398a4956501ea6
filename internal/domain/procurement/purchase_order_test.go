package procurement

import (
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers for PurchaseOrder
func lineInput(name, qty, price, discount, tax string) LineItemInput {
	return LineItemInput{
		ProductID:       uuid.New(),
		ProductName:     name,
		SKU:             "SKU-" + name,
		Quantity:        dec(qty),
		UnitPrice:       dec(price),
		DiscountPercent: dec(discount),
		TaxPercent:      dec(tax),
	}
}

func createTestOrder(t *testing.T, items ...LineItemInput) *PurchaseOrder {
	t.Helper()
	if len(items) == 0 {
		items = []LineItemInput{lineInput("Flour", "100", "10", "5", "0")}
	}
	order, err := NewPurchaseOrder("PO-2026-00001", NewOrderInput{
		SupplierID:   uuid.New(),
		SupplierName: "Acme Foods",
		Items:        items,
		ShippingCost: decimal.Zero,
	})
	require.NoError(t, err)
	return order
}

func approvedOrder(t *testing.T, items ...LineItemInput) *PurchaseOrder {
	t.Helper()
	order := createTestOrder(t, items...)
	require.NoError(t, order.Submit())
	require.NoError(t, order.Approve())
	order.ClearDomainEvents()
	return order
}

func receiveLine(lineID uuid.UUID, received, accepted, rejected string) ReceiveGoodsInput {
	return ReceiveGoodsInput{
		ReceivedBy: "warehouse-clerk",
		Items: []ReceiptItemInput{{
			LineItemID:       lineID,
			QuantityReceived: dec(received),
			QuantityAccepted: dec(accepted),
			QuantityRejected: dec(rejected),
		}},
	}
}

func requireKind(t *testing.T, err error, kind shared.ErrorKind) *shared.DomainError {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, kind, de.Kind, de.Message)
	return de
}

// ============================================
// Creation
// ============================================

func TestNewPurchaseOrder(t *testing.T) {
	t.Run("creates draft order with totals", func(t *testing.T) {
		order := createTestOrder(t)

		assert.Equal(t, OrderStatusDraft, order.Status)
		assert.Equal(t, PaymentStatusUnpaid, order.PaymentStatus)
		assert.Equal(t, 1, order.Version)
		require.Len(t, order.Items, 1)
		assert.True(t, order.Items[0].LineTotal.Equal(dec("950")))
		assert.True(t, order.Subtotal.Equal(dec("1000")))
		assert.True(t, order.DiscountAmount.Equal(dec("50")))
		assert.True(t, order.TotalAmount.Equal(dec("950")))
		assert.True(t, order.BalanceAmount.Equal(dec("950")))

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypePurchaseOrderCreated, events[0].EventType())
	})

	t.Run("shipping is added after tax", func(t *testing.T) {
		order, err := NewPurchaseOrder("PO-1", NewOrderInput{
			SupplierID:   uuid.New(),
			Items:        []LineItemInput{lineInput("Oil", "10", "20", "10", "10")},
			ShippingCost: dec("15"),
		})
		require.NoError(t, err)
		assert.True(t, order.TotalAmount.Equal(dec("213")))
	})

	tests := []struct {
		name  string
		input NewOrderInput
		code  string
	}{
		{"missing supplier", NewOrderInput{Items: []LineItemInput{lineInput("A", "1", "1", "0", "0")}}, "INVALID_SUPPLIER"},
		{"no items", NewOrderInput{SupplierID: uuid.New()}, "NO_ITEMS"},
		{"negative quantity", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "-1", "1", "0", "0")}}, "INVALID_QUANTITY"},
		{"zero quantity", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "0", "1", "0", "0")}}, "INVALID_QUANTITY"},
		{"negative price", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "1", "-1", "0", "0")}}, "INVALID_UNIT_PRICE"},
		{"discount over 100", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "1", "1", "101", "0")}}, "INVALID_DISCOUNT"},
		{"negative tax", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "1", "1", "0", "-5")}}, "INVALID_TAX"},
		{"negative shipping", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "1", "1", "0", "0")}, ShippingCost: dec("-1")}, "INVALID_SHIPPING_COST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPurchaseOrder("PO-1", tt.input)
			de := requireKind(t, err, shared.KindValidation)
			assert.Equal(t, tt.code, de.Code)
		})
	}

	t.Run("empty order number", func(t *testing.T) {
		_, err := NewPurchaseOrder("", NewOrderInput{SupplierID: uuid.New(), Items: []LineItemInput{lineInput("A", "1", "1", "0", "0")}})
		requireKind(t, err, shared.KindValidation)
	})
}

// ============================================
// Manual status changes
// ============================================

func TestPurchaseOrder_ManualWorkflow(t *testing.T) {
	order := createTestOrder(t)

	require.NoError(t, order.ChangeStatus(OrderStatusPending, ""))
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.NotNil(t, order.SubmittedAt)

	require.NoError(t, order.ChangeStatus(OrderStatusApproved, ""))
	assert.NotNil(t, order.ApprovedAt)

	require.NoError(t, order.ChangeStatus(OrderStatusOrdered, ""))
	assert.NotNil(t, order.OrderedAt)

	require.NoError(t, order.ChangeStatus(OrderStatusCancelled, "supplier out of business"))
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.Equal(t, "supplier out of business", order.CancelReason)
	assert.NotNil(t, order.CancelledAt)

	var changes int
	for _, e := range order.GetDomainEvents() {
		if e.EventType() == EventTypePurchaseOrderStatusChanged {
			changes++
		}
	}
	assert.Equal(t, 4, changes)
}

func TestPurchaseOrder_ChangeStatus_Rejections(t *testing.T) {
	t.Run("partial and received cannot be set manually", func(t *testing.T) {
		order := approvedOrder(t)
		for _, target := range []OrderStatus{OrderStatusPartial, OrderStatusReceived} {
			err := order.ChangeStatus(target, "")
			de := requireKind(t, err, shared.KindInvalidTransition)
			assert.Equal(t, "RECEIVING_ONLY_STATUS", de.Code)
		}
		assert.Equal(t, OrderStatusApproved, order.Status)
	})

	t.Run("skipping a step is rejected", func(t *testing.T) {
		order := createTestOrder(t)
		requireKind(t, order.ChangeStatus(OrderStatusApproved, ""), shared.KindInvalidTransition)
		requireKind(t, order.ChangeStatus(OrderStatusOrdered, ""), shared.KindInvalidTransition)
		requireKind(t, order.ChangeStatus(OrderStatusDraft, ""), shared.KindInvalidTransition)
		assert.Equal(t, OrderStatusDraft, order.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		order := createTestOrder(t)
		requireKind(t, order.ChangeStatus(OrderStatus("shipped"), ""), shared.KindValidation)
	})

	t.Run("partial order cannot be cancelled", func(t *testing.T) {
		order := approvedOrder(t)
		_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "10", "10", "0"))
		require.NoError(t, err)
		requireKind(t, order.Cancel("too late"), shared.KindInvalidTransition)
		assert.Equal(t, OrderStatusPartial, order.Status)
	})
}

func TestPurchaseOrder_TerminalImmutability(t *testing.T) {
	received := approvedOrder(t)
	_, err := received.ReceiveGoods(receiveLine(received.Items[0].ID, "100", "100", "0"))
	require.NoError(t, err)
	require.Equal(t, OrderStatusReceived, received.Status)

	cancelled := createTestOrder(t)
	require.NoError(t, cancelled.Cancel(""))

	for _, order := range []*PurchaseOrder{received, cancelled} {
		status := order.Status
		for _, target := range AllOrderStatuses() {
			assert.Error(t, order.ChangeStatus(target, ""), "%s -> %s", status, target)
		}
		_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "1", "1", "0"))
		requireKind(t, err, shared.KindInvalidTransition)
		notes := "edit"
		requireKind(t, order.Update(OrderPatch{Notes: &notes}), shared.KindInvalidTransition)
		assert.Equal(t, status, order.Status)
	}
}

// ============================================
// Receiving
// ============================================

func TestPurchaseOrder_ReceiveGoods_PartialThenComplete(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID

	receipt, err := order.ReceiveGoods(receiveLine(lineID, "60", "60", "0"))
	require.NoError(t, err)
	assert.True(t, order.Items[0].ReceivedQuantity.Equal(dec("60")))
	assert.Equal(t, OrderStatusPartial, order.Status)
	assert.Nil(t, order.ActualDeliveryDate)
	assert.Equal(t, "GRN-PO-2026-00001-01", receipt.ReceiptNumber)
	require.Len(t, order.Receipts, 1)

	deliveredAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	input := receiveLine(lineID, "40", "40", "0")
	input.ReceivedDate = deliveredAt
	receipt, err = order.ReceiveGoods(input)
	require.NoError(t, err)
	assert.True(t, order.Items[0].ReceivedQuantity.Equal(dec("100")))
	assert.Equal(t, OrderStatusReceived, order.Status)
	require.NotNil(t, order.ActualDeliveryDate)
	assert.True(t, order.ActualDeliveryDate.Equal(deliveredAt))
	assert.Equal(t, "GRN-PO-2026-00001-02", receipt.ReceiptNumber)
	require.Len(t, order.Receipts, 2)

	// first receipt untouched
	assert.True(t, order.Receipts[0].Items[0].QuantityAccepted.Equal(dec("60")))
}

func TestPurchaseOrder_ReceiveGoods_OverReceiptLeavesOrderUnchanged(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID
	_, err := order.ReceiveGoods(receiveLine(lineID, "60", "60", "0"))
	require.NoError(t, err)
	order.ClearDomainEvents()

	before := *order
	beforeItems := append([]PurchaseOrderLineItem(nil), order.Items...)

	_, err = order.ReceiveGoods(receiveLine(lineID, "50", "50", "0"))
	de := requireKind(t, err, shared.KindValidation)
	assert.Equal(t, "EXCEEDS_PENDING_QUANTITY", de.Code)
	assert.Equal(t, lineID.String(), de.Subject)

	// pending + 1 is rejected too
	_, err = order.ReceiveGoods(receiveLine(lineID, "41", "41", "0"))
	requireKind(t, err, shared.KindValidation)

	assert.Equal(t, before.Status, order.Status)
	assert.True(t, before.TotalAmount.Equal(order.TotalAmount))
	assert.Equal(t, beforeItems, order.Items)
	assert.Len(t, order.Receipts, 1)
	assert.Empty(t, order.GetDomainEvents())
}

func TestPurchaseOrder_ReceiveGoods_RejectedUnitsDoNotCount(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID

	input := receiveLine(lineID, "40", "30", "10")
	input.Items[0].RejectionReason = "damaged packaging"
	receipt, err := order.ReceiveGoods(input)
	require.NoError(t, err)

	assert.True(t, order.Items[0].ReceivedQuantity.Equal(dec("30")))
	assert.True(t, order.Items[0].PendingQuantity().Equal(dec("70")))
	assert.True(t, receipt.TotalRejected().Equal(dec("10")))
	assert.Equal(t, "damaged packaging", receipt.Items[0].RejectionReason)
	assert.Equal(t, OrderStatusPartial, order.Status)
}

func TestPurchaseOrder_ReceiveGoods_AllRejectedKeepsStatus(t *testing.T) {
	order := approvedOrder(t)
	_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "5", "0", "5"))
	require.NoError(t, err)
	assert.Equal(t, OrderStatusApproved, order.Status)
	assert.Len(t, order.Receipts, 1)
}

func TestPurchaseOrder_ReceiveGoods_Validation(t *testing.T) {
	lineA := lineInput("A", "10", "1", "0", "0")
	lineB := lineInput("B", "5", "2", "0", "0")

	tests := []struct {
		name  string
		build func(o *PurchaseOrder) ReceiveGoodsInput
		code  string
	}{
		{"no items", func(o *PurchaseOrder) ReceiveGoodsInput {
			return ReceiveGoodsInput{ReceivedBy: "clerk"}
		}, "NO_ITEMS"},
		{"missing receiver", func(o *PurchaseOrder) ReceiveGoodsInput {
			in := receiveLine(o.Items[0].ID, "1", "1", "0")
			in.ReceivedBy = ""
			return in
		}, "INVALID_RECEIVER"},
		{"sum mismatch", func(o *PurchaseOrder) ReceiveGoodsInput {
			return receiveLine(o.Items[0].ID, "5", "3", "1")
		}, "QUANTITY_MISMATCH"},
		{"zero received", func(o *PurchaseOrder) ReceiveGoodsInput {
			return receiveLine(o.Items[0].ID, "0", "0", "0")
		}, "INVALID_QUANTITY"},
		{"negative accepted", func(o *PurchaseOrder) ReceiveGoodsInput {
			return receiveLine(o.Items[0].ID, "1", "-1", "2")
		}, "INVALID_QUANTITY"},
		{"duplicate lines summed past pending", func(o *PurchaseOrder) ReceiveGoodsInput {
			in := receiveLine(o.Items[1].ID, "3", "3", "0")
			in.Items = append(in.Items, in.Items[0])
			return in
		}, "EXCEEDS_PENDING_QUANTITY"},
		{"valid first line, invalid second", func(o *PurchaseOrder) ReceiveGoodsInput {
			in := receiveLine(o.Items[0].ID, "10", "10", "0")
			in.Items = append(in.Items, ReceiptItemInput{
				LineItemID: o.Items[1].ID, QuantityReceived: dec("6"), QuantityAccepted: dec("6"), QuantityRejected: decimal.Zero,
			})
			return in
		}, "EXCEEDS_PENDING_QUANTITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := approvedOrder(t, lineA, lineB)
			_, err := order.ReceiveGoods(tt.build(order))
			de := requireKind(t, err, shared.KindValidation)
			assert.Equal(t, tt.code, de.Code)
			for _, item := range order.Items {
				assert.True(t, item.ReceivedQuantity.IsZero())
			}
			assert.Empty(t, order.Receipts)
			assert.Equal(t, OrderStatusApproved, order.Status)
		})
	}
}

func TestPurchaseOrder_ReceiveGoods_UnknownLine(t *testing.T) {
	order := approvedOrder(t)
	_, err := order.ReceiveGoods(receiveLine(uuid.New(), "1", "1", "0"))
	de := requireKind(t, err, shared.KindNotFound)
	assert.Equal(t, "LINE_ITEM_NOT_FOUND", de.Code)
	assert.Empty(t, order.Receipts)
}

func TestPurchaseOrder_ReceiveGoods_StatusGuards(t *testing.T) {
	t.Run("draft cannot receive", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "1", "1", "0"))
		requireKind(t, err, shared.KindInvalidTransition)
	})

	t.Run("ordered can receive", func(t *testing.T) {
		order := approvedOrder(t)
		require.NoError(t, order.MarkOrdered())
		_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "100", "100", "0"))
		require.NoError(t, err)
		assert.Equal(t, OrderStatusReceived, order.Status)
	})
}

func TestPurchaseOrder_ReceiveGoods_Events(t *testing.T) {
	order := approvedOrder(t)
	_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "20", "15", "5"))
	require.NoError(t, err)

	events := order.GetDomainEvents()
	require.Len(t, events, 2)
	received, ok := events[0].(*GoodsReceivedEvent)
	require.True(t, ok)
	assert.Equal(t, OrderStatusPartial, received.OrderStatus)
	require.Len(t, received.Items, 1)
	assert.True(t, received.Items[0].QuantityAccepted.Equal(dec("15")))
	assert.Equal(t, "SKU-Flour", received.Items[0].SKU)

	changed, ok := events[1].(*StatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, OrderStatusApproved, changed.FromStatus)
	assert.Equal(t, OrderStatusPartial, changed.ToStatus)
}

// Receiving never pushes received beyond ordered, whatever the sequence.
func TestPurchaseOrder_ReceiveGoods_Conservation(t *testing.T) {
	order := approvedOrder(t, lineInput("A", "7", "1", "0", "0"), lineInput("B", "3", "1", "0", "0"))
	attempts := []string{"2", "4", "1", "3", "2", "1", "5", "1"}
	for i, qty := range attempts {
		line := order.Items[i%2]
		_, _ = order.ReceiveGoods(receiveLine(line.ID, qty, qty, "0"))
		for _, item := range order.Items {
			assert.True(t, item.ReceivedQuantity.LessThanOrEqual(item.OrderedQuantity))
		}
		if order.Status == OrderStatusReceived {
			break
		}
	}
}

// ============================================
// Payments
// ============================================

func TestPurchaseOrder_AddPayment_Scenario(t *testing.T) {
	order := createTestOrder(t, lineInput("Widget", "100", "10", "0", "0"))
	require.True(t, order.TotalAmount.Equal(dec("1000")))

	_, err := order.AddPayment(PaymentInput{Amount: dec("600"), Method: PaymentMethodBankTransfer})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPartial, order.PaymentStatus)
	assert.True(t, order.BalanceAmount.Equal(dec("400")))

	payment, err := order.AddPayment(PaymentInput{Amount: dec("400"), Method: PaymentMethodCash, Reference: "CHQ-17"})
	require.NoError(t, err)
	assert.Equal(t, "CHQ-17", payment.Reference)
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
	assert.True(t, order.BalanceAmount.IsZero())

	_, err = order.AddPayment(PaymentInput{Amount: dec("1"), Method: PaymentMethodCash})
	de := requireKind(t, err, shared.KindValidation)
	assert.Equal(t, "EXCEEDS_BALANCE", de.Code)
	assert.Len(t, order.Payments, 2)
	assert.True(t, order.PaidAmount.Equal(dec("1000")))
}

func TestPurchaseOrder_AddPayment_Validation(t *testing.T) {
	order := createTestOrder(t)

	_, err := order.AddPayment(PaymentInput{Amount: decimal.Zero, Method: PaymentMethodCash})
	requireKind(t, err, shared.KindValidation)
	_, err = order.AddPayment(PaymentInput{Amount: dec("-5"), Method: PaymentMethodCash})
	requireKind(t, err, shared.KindValidation)
	_, err = order.AddPayment(PaymentInput{Amount: dec("5"), Method: PaymentMethod("barter")})
	requireKind(t, err, shared.KindValidation)

	require.NoError(t, order.Cancel(""))
	_, err = order.AddPayment(PaymentInput{Amount: dec("5"), Method: PaymentMethodCash})
	requireKind(t, err, shared.KindInvalidTransition)
	assert.Empty(t, order.Payments)
}

func TestPurchaseOrder_AddPayment_Monotonic(t *testing.T) {
	order := createTestOrder(t, lineInput("Widget", "10", "10", "0", "0"))
	rank := map[PaymentStatus]int{PaymentStatusUnpaid: 0, PaymentStatusPartial: 1, PaymentStatusPaid: 2}

	prevPaid := order.PaidAmount
	prevStatus := order.PaymentStatus
	for _, amount := range []string{"10", "0", "25.5", "200", "64.5", "1"} {
		_, _ = order.AddPayment(PaymentInput{Amount: dec(amount), Method: PaymentMethodCash})
		assert.True(t, order.PaidAmount.GreaterThanOrEqual(prevPaid))
		assert.GreaterOrEqual(t, rank[order.PaymentStatus], rank[prevStatus])
		assert.True(t, order.PaidAmount.LessThanOrEqual(order.TotalAmount))
		prevPaid = order.PaidAmount
		prevStatus = order.PaymentStatus
	}
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
}

func TestPurchaseOrder_PaymentsAllowedAfterReceived(t *testing.T) {
	order := approvedOrder(t)
	_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "100", "100", "0"))
	require.NoError(t, err)

	_, err = order.AddPayment(PaymentInput{Amount: dec("950"), Method: PaymentMethodBankTransfer})
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
}

// ============================================
// Updates
// ============================================

func TestPurchaseOrder_Update(t *testing.T) {
	t.Run("replaces items and recalculates totals", func(t *testing.T) {
		order := createTestOrder(t)
		keep := order.Items[0].ID
		edited := lineInput("Flour", "200", "10", "5", "0")
		edited.ID = &keep
		items := []LineItemInput{edited, lineInput("Sugar", "10", "3", "0", "10")}

		require.NoError(t, order.Update(OrderPatch{Items: &items}))
		require.Len(t, order.Items, 2)
		assert.Equal(t, keep, order.Items[0].ID)
		assert.True(t, order.TotalAmount.Equal(dec("1933")))
		assert.True(t, order.BalanceAmount.Equal(dec("1933")))
	})

	t.Run("updates header fields", func(t *testing.T) {
		order := createTestOrder(t)
		notes := "deliver to back door"
		name := "Acme Foods Ltd"
		shipping := dec("50")
		expected := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

		require.NoError(t, order.Update(OrderPatch{
			Notes: &notes, SupplierName: &name, ShippingCost: &shipping, ExpectedDeliveryDate: &expected,
		}))
		assert.Equal(t, notes, order.Notes)
		assert.Equal(t, name, order.SupplierName)
		assert.True(t, order.TotalAmount.Equal(dec("1000")))
		require.NotNil(t, order.ExpectedDeliveryDate)
		assert.True(t, order.ExpectedDeliveryDate.Equal(expected))
	})

	t.Run("shipping change re-derives payment status", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.AddPayment(PaymentInput{Amount: dec("900"), Method: PaymentMethodCash})
		require.NoError(t, err)
		require.Equal(t, PaymentStatusPartial, order.PaymentStatus)

		discount := lineInput("Flour", "100", "10", "10", "0")
		discount.ID = &order.Items[0].ID
		items := []LineItemInput{discount}
		require.NoError(t, order.Update(OrderPatch{Items: &items}))
		assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
		assert.True(t, order.BalanceAmount.IsZero())

		shipping := dec("-50")
		requireKind(t, order.Update(OrderPatch{ShippingCost: &shipping}), shared.KindValidation)
	})

	t.Run("paid order cannot grow", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.AddPayment(PaymentInput{Amount: dec("950"), Method: PaymentMethodCash})
		require.NoError(t, err)
		require.Equal(t, PaymentStatusPaid, order.PaymentStatus)

		shipping := dec("50")
		de := requireKind(t, order.Update(OrderPatch{ShippingCost: &shipping}), shared.KindValidation)
		assert.Equal(t, "TOTAL_ABOVE_PAID_ORDER", de.Code)
		assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
		assert.True(t, order.TotalAmount.Equal(dec("950")))
		assert.True(t, order.ShippingCost.IsZero())

		notes := "paid in full"
		require.NoError(t, order.Update(OrderPatch{Notes: &notes}))
		assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
	})

	t.Run("total may not drop below paid", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.AddPayment(PaymentInput{Amount: dec("900"), Method: PaymentMethodCash})
		require.NoError(t, err)

		items := []LineItemInput{lineInput("Flour", "10", "10", "0", "0")}
		de := requireKind(t, order.Update(OrderPatch{Items: &items}), shared.KindValidation)
		assert.Equal(t, "TOTAL_BELOW_PAID", de.Code)
		assert.True(t, order.TotalAmount.Equal(dec("950")))
	})

	t.Run("items locked after receiving", func(t *testing.T) {
		order := approvedOrder(t)
		_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "10", "10", "0"))
		require.NoError(t, err)

		items := []LineItemInput{lineInput("Other", "1", "1", "0", "0")}
		requireKind(t, order.Update(OrderPatch{Items: &items}), shared.KindInvalidTransition)

		notes := "still editable"
		require.NoError(t, order.Update(OrderPatch{Notes: &notes}))
		assert.Equal(t, notes, order.Notes)
	})

	t.Run("items locked after a fully rejected receipt", func(t *testing.T) {
		order := approvedOrder(t)
		lineID := order.Items[0].ID
		_, err := order.ReceiveGoods(receiveLine(lineID, "10", "0", "10"))
		require.NoError(t, err)
		require.Equal(t, OrderStatusApproved, order.Status)

		items := []LineItemInput{lineInput("Other", "1", "1", "0", "0")}
		de := requireKind(t, order.Update(OrderPatch{Items: &items}), shared.KindInvalidTransition)
		assert.Equal(t, "ITEMS_LOCKED", de.Code)
		require.Len(t, order.Items, 1)
		assert.Equal(t, lineID, order.Items[0].ID)
		assert.Equal(t, lineID, order.Receipts[0].Items[0].LineItemID)
	})

	t.Run("unknown line id", func(t *testing.T) {
		order := createTestOrder(t)
		missing := uuid.New()
		in := lineInput("X", "1", "1", "0", "0")
		in.ID = &missing
		items := []LineItemInput{in}
		requireKind(t, order.Update(OrderPatch{Items: &items}), shared.KindNotFound)
	})

	t.Run("empty item set", func(t *testing.T) {
		order := createTestOrder(t)
		items := []LineItemInput{}
		requireKind(t, order.Update(OrderPatch{Items: &items}), shared.KindValidation)
	})
}

// ============================================
// Returns
// ============================================

func TestPurchaseOrder_CreateReturn(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID
	_, err := order.ReceiveGoods(receiveLine(lineID, "60", "60", "0"))
	require.NoError(t, err)

	ret, err := order.CreateReturn(CreateReturnInput{
		Reason: "spoiled on arrival",
		Items:  []ReturnItemInput{{LineItemID: lineID, Quantity: dec("10")}},
	})
	require.NoError(t, err)
	assert.Equal(t, ReturnStatusPending, ret.Status)
	assert.Equal(t, "RTN-PO-2026-00001-01", ret.ReturnNumber)
	assert.True(t, ret.ReturnAmount.Equal(dec("95")))
	assert.True(t, order.ReturnableQuantity(lineID).Equal(dec("50")))
	// receipt history is untouched
	assert.True(t, order.Items[0].ReceivedQuantity.Equal(dec("60")))

	_, err = order.CreateReturn(CreateReturnInput{
		Reason: "more",
		Items:  []ReturnItemInput{{LineItemID: lineID, Quantity: dec("51")}},
	})
	de := requireKind(t, err, shared.KindValidation)
	assert.Equal(t, "EXCEEDS_RETURNABLE_QUANTITY", de.Code)
}

func TestPurchaseOrder_CreateReturn_Validation(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID
	_, err := order.ReceiveGoods(receiveLine(lineID, "10", "10", "0"))
	require.NoError(t, err)

	_, err = order.CreateReturn(CreateReturnInput{Items: []ReturnItemInput{{LineItemID: lineID, Quantity: dec("1")}}})
	assert.Equal(t, "INVALID_REASON", requireKind(t, err, shared.KindValidation).Code)

	_, err = order.CreateReturn(CreateReturnInput{Reason: "bad"})
	assert.Equal(t, "NO_ITEMS", requireKind(t, err, shared.KindValidation).Code)

	_, err = order.CreateReturn(CreateReturnInput{Reason: "bad", Items: []ReturnItemInput{{LineItemID: uuid.New(), Quantity: dec("1")}}})
	assert.Equal(t, "LINE_ITEM_NOT_FOUND", requireKind(t, err, shared.KindNotFound).Code)

	_, err = order.CreateReturn(CreateReturnInput{Reason: "bad", Items: []ReturnItemInput{{LineItemID: lineID, Quantity: dec("0")}}})
	assert.Equal(t, "INVALID_QUANTITY", requireKind(t, err, shared.KindValidation).Code)

	assert.Empty(t, order.Returns)
}

func TestPurchaseOrder_ChangeReturnStatus(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID
	_, err := order.ReceiveGoods(receiveLine(lineID, "100", "100", "0"))
	require.NoError(t, err)

	ret, err := order.CreateReturn(CreateReturnInput{Reason: "wrong grade", Items: []ReturnItemInput{{LineItemID: lineID, Quantity: dec("5")}}})
	require.NoError(t, err)

	_, err = order.ChangeReturnStatus(ret.ID, ReturnStatusCompleted)
	requireKind(t, err, shared.KindInvalidTransition)

	updated, err := order.ChangeReturnStatus(ret.ID, ReturnStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, ReturnStatusApproved, updated.Status)

	_, err = order.ChangeReturnStatus(ret.ID, ReturnStatusPending)
	requireKind(t, err, shared.KindInvalidTransition)
	_, err = order.ChangeReturnStatus(ret.ID, ReturnStatusRejected)
	requireKind(t, err, shared.KindInvalidTransition)

	updated, err = order.ChangeReturnStatus(ret.ID, ReturnStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, ReturnStatusCompleted, updated.Status)

	_, err = order.ChangeReturnStatus(uuid.New(), ReturnStatusApproved)
	requireKind(t, err, shared.KindNotFound)
}

func TestPurchaseOrder_RejectedReturnReleasesQuantity(t *testing.T) {
	order := approvedOrder(t)
	lineID := order.Items[0].ID
	_, err := order.ReceiveGoods(receiveLine(lineID, "10", "10", "0"))
	require.NoError(t, err)

	ret, err := order.CreateReturn(CreateReturnInput{Reason: "dispute", Items: []ReturnItemInput{{LineItemID: lineID, Quantity: dec("10")}}})
	require.NoError(t, err)
	assert.True(t, order.ReturnableQuantity(lineID).IsZero())

	_, err = order.ChangeReturnStatus(ret.ID, ReturnStatusRejected)
	require.NoError(t, err)
	assert.True(t, order.ReturnableQuantity(lineID).Equal(dec("10")))
}

func TestReturnStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ReturnStatusPending.CanTransitionTo(ReturnStatusApproved))
	assert.True(t, ReturnStatusPending.CanTransitionTo(ReturnStatusRejected))
	assert.True(t, ReturnStatusApproved.CanTransitionTo(ReturnStatusCompleted))
	assert.False(t, ReturnStatusApproved.CanTransitionTo(ReturnStatusPending))
	assert.False(t, ReturnStatusCompleted.CanTransitionTo(ReturnStatusApproved))
	assert.False(t, ReturnStatusRejected.CanTransitionTo(ReturnStatusApproved))
	assert.False(t, ReturnStatusPending.CanTransitionTo(ReturnStatusCompleted))
}

func TestPurchaseOrder_ReceiveProgress(t *testing.T) {
	order := approvedOrder(t, lineInput("A", "30", "1", "0", "0"), lineInput("B", "10", "1", "0", "0"))
	assert.True(t, order.ReceiveProgress().IsZero())

	_, err := order.ReceiveGoods(receiveLine(order.Items[0].ID, "10", "10", "0"))
	require.NoError(t, err)
	assert.True(t, order.ReceiveProgress().Equal(dec("25")))
	assert.True(t, order.TotalOrderedQuantity().Equal(dec("40")))
	assert.True(t, order.TotalReceivedQuantity().Equal(dec("10")))
}
