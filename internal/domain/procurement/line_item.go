package procurement

import (
	"fmt"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PurchaseOrderLineItem represents a line item in a purchase order.
// It is owned exclusively by its parent order.
type PurchaseOrderLineItem struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	SKU              string
	OrderedQuantity  decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitPrice        decimal.Decimal
	DiscountPercent  decimal.Decimal
	TaxPercent       decimal.Decimal
	LineTotal        decimal.Decimal
}

// LineItemInput carries the caller-supplied fields of a line item.
// ID is set when an existing line is being edited.
type LineItemInput struct {
	ID              *uuid.UUID
	ProductID       uuid.UUID
	ProductName     string
	SKU             string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
}

// Validate checks the line input at the order-mutation boundary
func (in LineItemInput) Validate() error {
	subject := in.ProductID.String()
	if in.ProductID == uuid.Nil {
		return shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if in.ProductName == "" {
		return shared.NewValidationError("INVALID_PRODUCT_NAME",
			fmt.Sprintf("Product name cannot be empty for product %s", subject)).WithSubject(subject)
	}
	if !in.Quantity.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY",
			fmt.Sprintf("Quantity for product %s must be positive, got %s", subject, in.Quantity)).WithSubject(subject)
	}
	if in.UnitPrice.IsNegative() {
		return shared.NewValidationError("INVALID_UNIT_PRICE",
			fmt.Sprintf("Unit price for product %s cannot be negative, got %s", subject, in.UnitPrice)).WithSubject(subject)
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return shared.NewValidationError("INVALID_DISCOUNT",
			fmt.Sprintf("Discount for product %s must be between 0 and 100, got %s", subject, in.DiscountPercent)).WithSubject(subject)
	}
	if in.TaxPercent.IsNegative() {
		return shared.NewValidationError("INVALID_TAX",
			fmt.Sprintf("Tax for product %s cannot be negative, got %s", subject, in.TaxPercent)).WithSubject(subject)
	}
	return nil
}

// NewLineItem creates a new line item with nothing received
func NewLineItem(in LineItemInput) (*PurchaseOrderLineItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	if in.ID != nil && *in.ID != uuid.Nil {
		id = *in.ID
	}
	item := &PurchaseOrderLineItem{
		ID:               id,
		ProductID:        in.ProductID,
		ProductName:      in.ProductName,
		SKU:              in.SKU,
		OrderedQuantity:  in.Quantity,
		ReceivedQuantity: decimal.Zero,
		UnitPrice:        in.UnitPrice,
		DiscountPercent:  in.DiscountPercent,
		TaxPercent:       in.TaxPercent,
	}
	item.recalculate()
	return item, nil
}

// Pricing returns the calculator input for the full ordered quantity
func (i *PurchaseOrderLineItem) Pricing() LinePricing {
	return i.PricingFor(i.OrderedQuantity)
}

// PricingFor returns the calculator input for an arbitrary quantity of this line
func (i *PurchaseOrderLineItem) PricingFor(quantity decimal.Decimal) LinePricing {
	return LinePricing{
		Quantity:        quantity,
		UnitPrice:       i.UnitPrice,
		DiscountPercent: i.DiscountPercent,
		TaxPercent:      i.TaxPercent,
	}
}

// Amounts returns the monetary breakdown of the line
func (i *PurchaseOrderLineItem) Amounts() LineAmounts {
	return CalculateLine(i.Pricing())
}

// PendingQuantity returns the quantity still outstanding
func (i *PurchaseOrderLineItem) PendingQuantity() decimal.Decimal {
	pending := i.OrderedQuantity.Sub(i.ReceivedQuantity)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// IsFullyReceived checks if the ordered quantity has been received
func (i *PurchaseOrderLineItem) IsFullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.OrderedQuantity)
}

// Progress returns the line's receipt progress for status derivation
func (i *PurchaseOrderLineItem) Progress() ReceiptProgress {
	return ReceiptProgress{Ordered: i.OrderedQuantity, Received: i.ReceivedQuantity}
}

func (i *PurchaseOrderLineItem) recalculate() {
	i.LineTotal = i.Amounts().Total
}
