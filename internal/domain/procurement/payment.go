package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a supplier payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodCreditCard, PaymentMethodOther:
		return true
	}
	return false
}

// PaymentInput is a payment to record against an order
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    PaymentMethod
	Date      time.Time // zero means now
	Reference string
}

// PaymentRecord is an append-only supplier payment
type PaymentRecord struct {
	ID        uuid.UUID
	Amount    decimal.Decimal
	Method    PaymentMethod
	Date      time.Time
	Reference string
	CreatedAt time.Time
}

// AddPayment records a payment against the order. The amount must be
// positive and cannot exceed the outstanding balance.
func (o *PurchaseOrder) AddPayment(input PaymentInput) (*PaymentRecord, error) {
	if o.Status == OrderStatusCancelled {
		return nil, shared.NewInvalidTransitionError("ORDER_CANCELLED",
			fmt.Sprintf("Cannot record payment for cancelled order %s", o.OrderNumber))
	}
	if !input.Amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT",
			fmt.Sprintf("Payment amount must be positive, got %s", input.Amount))
	}
	if input.Amount.GreaterThan(o.BalanceAmount) {
		return nil, shared.NewValidationError("EXCEEDS_BALANCE",
			fmt.Sprintf("Payment amount %s exceeds balance %s of order %s", input.Amount, o.BalanceAmount, o.OrderNumber))
	}
	if !input.Method.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_METHOD",
			fmt.Sprintf("Invalid payment method: %s", input.Method))
	}

	now := time.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	payment := PaymentRecord{
		ID:        uuid.New(),
		Amount:    input.Amount,
		Method:    input.Method,
		Date:      date,
		Reference: input.Reference,
		CreatedAt: now,
	}
	o.Payments = append(o.Payments, payment)

	o.PaidAmount = o.PaidAmount.Add(payment.Amount)
	o.refreshBalance()
	o.UpdatedAt = now

	o.AddDomainEvent(NewPaymentRecordedEvent(o, &payment))

	return &payment, nil
}
