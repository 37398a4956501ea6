package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnStatus represents the status of a purchase return
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusCompleted ReturnStatus = "completed"
	ReturnStatusRejected  ReturnStatus = "rejected"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusCompleted, ReturnStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks the one-directional return state machine
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusPending:
		return target == ReturnStatusApproved || target == ReturnStatusRejected
	case ReturnStatusApproved:
		return target == ReturnStatusCompleted
	}
	return false
}

// ReturnItemInput is one line of a return request
type ReturnItemInput struct {
	LineItemID uuid.UUID
	Quantity   decimal.Decimal
	Reason     string
}

// CreateReturnInput is a return request against received goods
type CreateReturnInput struct {
	Reason     string
	ReturnDate time.Time // zero means now
	Items      []ReturnItemInput
}

// ReturnItem is a line of a purchase return
type ReturnItem struct {
	LineItemID  uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal
	Reason      string
}

// PurchaseReturnRecord records goods sent back to the supplier
type PurchaseReturnRecord struct {
	ID           uuid.UUID
	ReturnNumber string
	ReturnDate   time.Time
	Reason       string
	Items        []ReturnItem
	ReturnAmount decimal.Decimal
	Status       ReturnStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// returnedQuantity sums the quantity of a line on returns that still count
// against it. Rejected returns release their quantity.
func (o *PurchaseOrder) returnedQuantity(lineItemID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Returns {
		if r.Status == ReturnStatusRejected {
			continue
		}
		for _, item := range r.Items {
			if item.LineItemID == lineItemID {
				total = total.Add(item.Quantity)
			}
		}
	}
	return total
}

// ReturnableQuantity returns how much of a line can still be returned
func (o *PurchaseOrder) ReturnableQuantity(lineItemID uuid.UUID) decimal.Decimal {
	item := o.GetItem(lineItemID)
	if item == nil {
		return decimal.Zero
	}
	returnable := item.ReceivedQuantity.Sub(o.returnedQuantity(lineItemID))
	if returnable.IsNegative() {
		return decimal.Zero
	}
	return returnable
}

// CreateReturn records a return of received goods. At least one item and a
// reason are required, and no line may be returned beyond what was received.
func (o *PurchaseOrder) CreateReturn(input CreateReturnInput) (*PurchaseReturnRecord, error) {
	if o.Status == OrderStatusCancelled {
		return nil, shared.NewInvalidTransitionError("ORDER_CANCELLED",
			fmt.Sprintf("Cannot create return for cancelled order %s", o.OrderNumber))
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, shared.NewValidationError("INVALID_REASON", "Return reason is required")
	}
	if len(input.Items) == 0 {
		return nil, shared.NewValidationError("NO_ITEMS", "Return must contain at least one item")
	}

	requested := make(map[uuid.UUID]decimal.Decimal, len(input.Items))
	for _, ri := range input.Items {
		subject := ri.LineItemID.String()
		if o.GetItem(ri.LineItemID) == nil {
			return nil, shared.NewNotFoundError("LINE_ITEM_NOT_FOUND",
				fmt.Sprintf("Line item %s does not exist on order %s", subject, o.OrderNumber)).WithSubject(subject)
		}
		if !ri.Quantity.IsPositive() {
			return nil, shared.NewValidationError("INVALID_QUANTITY",
				fmt.Sprintf("Return quantity for line item %s must be positive, got %s", subject, ri.Quantity)).WithSubject(subject)
		}
		total := requested[ri.LineItemID].Add(ri.Quantity)
		returnable := o.ReturnableQuantity(ri.LineItemID)
		if total.GreaterThan(returnable) {
			return nil, shared.NewValidationError("EXCEEDS_RETURNABLE_QUANTITY",
				fmt.Sprintf("Line item %s: return quantity %s exceeds returnable quantity %s", subject, total, returnable)).WithSubject(subject)
		}
		requested[ri.LineItemID] = total
	}

	now := time.Now()
	returnDate := input.ReturnDate
	if returnDate.IsZero() {
		returnDate = now
	}

	record := PurchaseReturnRecord{
		ID:           uuid.New(),
		ReturnNumber: fmt.Sprintf("RTN-%s-%02d", o.OrderNumber, len(o.Returns)+1),
		ReturnDate:   returnDate,
		Reason:       input.Reason,
		Items:        make([]ReturnItem, 0, len(input.Items)),
		ReturnAmount: decimal.Zero,
		Status:       ReturnStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, ri := range input.Items {
		line := o.GetItem(ri.LineItemID)
		amount := CalculateLine(line.PricingFor(ri.Quantity)).Total
		record.Items = append(record.Items, ReturnItem{
			LineItemID:  ri.LineItemID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    ri.Quantity,
			Amount:      amount,
			Reason:      ri.Reason,
		})
		record.ReturnAmount = record.ReturnAmount.Add(amount)
	}

	o.Returns = append(o.Returns, record)
	o.UpdatedAt = now
	o.AddDomainEvent(NewReturnCreatedEvent(o, &record))

	return &record, nil
}

// GetReturn returns the return with the given ID, or nil
func (o *PurchaseOrder) GetReturn(returnID uuid.UUID) *PurchaseReturnRecord {
	for i := range o.Returns {
		if o.Returns[i].ID == returnID {
			return &o.Returns[i]
		}
	}
	return nil
}

// ChangeReturnStatus moves a return along pending -> approved|rejected and
// approved -> completed.
func (o *PurchaseOrder) ChangeReturnStatus(returnID uuid.UUID, target ReturnStatus) (*PurchaseReturnRecord, error) {
	if !target.IsValid() {
		return nil, shared.NewValidationError("INVALID_RETURN_STATUS",
			fmt.Sprintf("Invalid return status: %s", target))
	}
	r := o.GetReturn(returnID)
	if r == nil {
		return nil, shared.NewNotFoundError("RETURN_NOT_FOUND",
			fmt.Sprintf("Return %s does not exist on order %s", returnID, o.OrderNumber)).WithSubject(returnID.String())
	}
	if !r.Status.CanTransitionTo(target) {
		return nil, shared.NewInvalidTransitionError("INVALID_RETURN_TRANSITION",
			fmt.Sprintf("Cannot change return %s from %s to %s", r.ReturnNumber, r.Status, target)).WithSubject(returnID.String())
	}

	previous := r.Status
	now := time.Now()
	r.Status = target
	r.UpdatedAt = now
	o.UpdatedAt = now
	o.AddDomainEvent(NewReturnStatusChangedEvent(o, r, previous))

	out := *r
	return &out, nil
}
