package procurement

import (
	"github.com/shopspring/decimal"
)

// LinePricing is the pricing input of a single line: quantity, unit price
// and the flat discount and tax percentages applied to it.
type LinePricing struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
}

// LineAmounts holds the monetary breakdown of one line
type LineAmounts struct {
	Subtotal decimal.Decimal // quantity * unitPrice
	Discount decimal.Decimal // subtotal * discount% / 100
	Taxable  decimal.Decimal // subtotal - discount
	Tax      decimal.Decimal // taxable * tax% / 100
	Total    decimal.Decimal // taxable + tax
}

// OrderTotals holds the order-level monetary breakdown
type OrderTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalAmount    decimal.Decimal
}

// percentOf returns amount * percent / 100 without any rounding.
// Shift(-2) divides by 100 exactly, unlike Div which is bounded by
// decimal.DivisionPrecision.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Shift(-2)
}

// CalculateLine computes the amounts of one line. Discount is applied
// before tax. Nothing is rounded.
func CalculateLine(p LinePricing) LineAmounts {
	subtotal := p.Quantity.Mul(p.UnitPrice)
	discount := percentOf(subtotal, p.DiscountPercent)
	taxable := subtotal.Sub(discount)
	tax := percentOf(taxable, p.TaxPercent)
	return LineAmounts{
		Subtotal: subtotal,
		Discount: discount,
		Taxable:  taxable,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}
}

// CalculateTotals computes order totals from its lines and the order-level
// shipping cost. Shipping is added after tax and is neither discounted nor
// taxed. An empty line set yields zero for every line-derived total.
func CalculateTotals(lines []LinePricing, shippingCost decimal.Decimal) OrderTotals {
	totals := OrderTotals{
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		ShippingCost:   shippingCost,
	}
	for _, line := range lines {
		amounts := CalculateLine(line)
		totals.Subtotal = totals.Subtotal.Add(amounts.Subtotal)
		totals.DiscountAmount = totals.DiscountAmount.Add(amounts.Discount)
		totals.TaxAmount = totals.TaxAmount.Add(amounts.Tax)
	}
	totals.TotalAmount = totals.Subtotal.
		Sub(totals.DiscountAmount).
		Add(totals.TaxAmount).
		Add(shippingCost)
	return totals
}

// CalculateBalance returns the amount still owed to the supplier
func CalculateBalance(totalAmount, paidAmount decimal.Decimal) decimal.Decimal {
	return totalAmount.Sub(paidAmount)
}
