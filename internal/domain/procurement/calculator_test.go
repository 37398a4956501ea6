package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateLine(t *testing.T) {
	tests := []struct {
		name     string
		pricing  LinePricing
		subtotal string
		discount string
		tax      string
		total    string
	}{
		{
			name:     "discount without tax",
			pricing:  LinePricing{Quantity: dec("100"), UnitPrice: dec("10"), DiscountPercent: dec("5"), TaxPercent: dec("0")},
			subtotal: "1000", discount: "50", tax: "0", total: "950",
		},
		{
			name:     "discount applied before tax",
			pricing:  LinePricing{Quantity: dec("10"), UnitPrice: dec("20"), DiscountPercent: dec("10"), TaxPercent: dec("10")},
			subtotal: "200", discount: "20", tax: "18", total: "198",
		},
		{
			name:     "no adjustments",
			pricing:  LinePricing{Quantity: dec("3"), UnitPrice: dec("1.5")},
			subtotal: "4.5", discount: "0", tax: "0", total: "4.5",
		},
		{
			name:     "no mid-calculation rounding",
			pricing:  LinePricing{Quantity: dec("3"), UnitPrice: dec("0.333"), DiscountPercent: dec("7.5"), TaxPercent: dec("8.25")},
			subtotal: "0.999", discount: "0.074925", tax: "0.0762361875", total: "1.0003111875",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateLine(tt.pricing)
			assert.True(t, got.Subtotal.Equal(dec(tt.subtotal)), "subtotal: %s", got.Subtotal)
			assert.True(t, got.Discount.Equal(dec(tt.discount)), "discount: %s", got.Discount)
			assert.True(t, got.Tax.Equal(dec(tt.tax)), "tax: %s", got.Tax)
			assert.True(t, got.Total.Equal(dec(tt.total)), "total: %s", got.Total)
			assert.True(t, got.Taxable.Equal(got.Subtotal.Sub(got.Discount)))
		})
	}
}

func TestCalculateTotals(t *testing.T) {
	t.Run("zero items yields zero totals plus shipping", func(t *testing.T) {
		totals := CalculateTotals(nil, decimal.Zero)
		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.DiscountAmount.IsZero())
		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.TotalAmount.IsZero())
	})

	t.Run("sums lines and adds shipping after tax", func(t *testing.T) {
		lines := []LinePricing{
			{Quantity: dec("100"), UnitPrice: dec("10"), DiscountPercent: dec("5")},
			{Quantity: dec("10"), UnitPrice: dec("20"), DiscountPercent: dec("10"), TaxPercent: dec("10")},
		}
		totals := CalculateTotals(lines, dec("25"))
		assert.True(t, totals.Subtotal.Equal(dec("1200")))
		assert.True(t, totals.DiscountAmount.Equal(dec("70")))
		assert.True(t, totals.TaxAmount.Equal(dec("18")))
		assert.True(t, totals.ShippingCost.Equal(dec("25")))
		assert.True(t, totals.TotalAmount.Equal(dec("1173")))
	})

	t.Run("total identity holds and recomputation is stable", func(t *testing.T) {
		lines := []LinePricing{
			{Quantity: dec("7"), UnitPrice: dec("3.33"), DiscountPercent: dec("12.5"), TaxPercent: dec("19")},
			{Quantity: dec("0.25"), UnitPrice: dec("1999.99"), DiscountPercent: dec("0"), TaxPercent: dec("7")},
			{Quantity: dec("13"), UnitPrice: dec("0.07"), DiscountPercent: dec("33.3"), TaxPercent: dec("0")},
		}
		shipping := dec("12.34")
		first := CalculateTotals(lines, shipping)
		expected := first.Subtotal.Sub(first.DiscountAmount).Add(first.TaxAmount).Add(first.ShippingCost)
		assert.True(t, first.TotalAmount.Equal(expected))

		for i := 0; i < 5; i++ {
			again := CalculateTotals(lines, shipping)
			assert.True(t, again.TotalAmount.Equal(first.TotalAmount))
			assert.True(t, again.TaxAmount.Equal(first.TaxAmount))
		}
	})
}

func TestCalculateBalance(t *testing.T) {
	assert.True(t, CalculateBalance(dec("1000"), dec("600")).Equal(dec("400")))
	assert.True(t, CalculateBalance(dec("1000"), dec("1000")).IsZero())
	assert.True(t, CalculateBalance(dec("1000"), decimal.Zero).Equal(dec("1000")))
}
