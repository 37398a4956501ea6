package procurement

import (
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a purchase order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusOrdered   OrderStatus = "ordered"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// AllOrderStatuses returns every order status in lifecycle order
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusDraft,
		OrderStatusPending,
		OrderStatusApproved,
		OrderStatusOrdered,
		OrderStatusPartial,
		OrderStatusReceived,
		OrderStatusCancelled,
	}
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusApproved, OrderStatusOrdered,
		OrderStatusPartial, OrderStatusReceived, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no operation may transition out of the status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusReceived || s == OrderStatusCancelled
}

// IsPreReceiving reports whether no goods have been received in this status
func (s OrderStatus) IsPreReceiving() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusApproved, OrderStatusOrdered:
		return true
	}
	return false
}

// CanReceive returns true if receiving goods is allowed in this status
func (s OrderStatus) CanReceive() bool {
	return s == OrderStatusApproved || s == OrderStatusOrdered || s == OrderStatusPartial
}

// IsManualTarget reports whether the status may be requested through a
// manual status change. partial and received are produced by receiving only.
func (s OrderStatus) IsManualTarget() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusOrdered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status,
// covering both manual and receiving-driven edges.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusPending || target == OrderStatusCancelled
	case OrderStatusPending:
		return target == OrderStatusApproved || target == OrderStatusCancelled
	case OrderStatusApproved:
		return target == OrderStatusOrdered || target == OrderStatusCancelled ||
			target == OrderStatusPartial || target == OrderStatusReceived
	case OrderStatusOrdered:
		return target == OrderStatusPartial || target == OrderStatusReceived || target == OrderStatusCancelled
	case OrderStatusPartial:
		return target == OrderStatusReceived
	case OrderStatusReceived, OrderStatusCancelled:
		return false // Terminal states
	}
	return false
}

// CanManuallyTransitionTo checks the manual subset of the state machine
func (s OrderStatus) CanManuallyTransitionTo(target OrderStatus) bool {
	return target.IsManualTarget() && s.CanTransitionTo(target)
}

// ReceiptProgress is the ordered and received quantity of one line
type ReceiptProgress struct {
	Ordered  decimal.Decimal
	Received decimal.Decimal
}

// DeriveOrderStatus maps line receipt progress to the next order status.
// A cancelled order stays cancelled. When nothing has been received the
// current status is kept. When every line is fully received the order is
// received, otherwise it is partial.
func DeriveOrderStatus(current OrderStatus, lines []ReceiptProgress) OrderStatus {
	if current == OrderStatusCancelled {
		return current
	}

	anyReceived := false
	allReceived := true
	for _, line := range lines {
		if line.Received.IsPositive() {
			anyReceived = true
		}
		if line.Received.LessThan(line.Ordered) {
			allReceived = false
		}
	}

	switch {
	case !anyReceived:
		return current
	case allReceived:
		return OrderStatusReceived
	default:
		return OrderStatusPartial
	}
}

// PaymentStatus represents how much of the order total has been paid
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// DerivePaymentStatus maps the cumulative paid amount against the total
func DerivePaymentStatus(totalAmount, paidAmount decimal.Decimal) PaymentStatus {
	switch {
	case paidAmount.LessThanOrEqual(decimal.Zero):
		return PaymentStatusUnpaid
	case paidAmount.LessThan(totalAmount):
		return PaymentStatusPartial
	default:
		return PaymentStatusPaid
	}
}
