package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func rate(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestComputeTotals(t *testing.T) {
	t.Run("single line with fractional rate", func(t *testing.T) {
		totals := ComputeTotals([]LineItemInput{
			{Description: "Design", Quantity: 1, UnitPrice: 1000, TaxRate: rate("7.5")},
		})
		assert.Equal(t, int64(1000), totals.Subtotal)
		assert.Equal(t, int64(75), totals.Tax)
		assert.Equal(t, int64(1075), totals.Total)
	})

	t.Run("tax rounds half away from zero per line", func(t *testing.T) {
		// 333 * 7.5% = 24.975 -> 25
		totals := ComputeTotals([]LineItemInput{
			{Description: "Odd", Quantity: 1, UnitPrice: 333, TaxRate: rate("7.5")},
		})
		assert.Equal(t, int64(25), totals.Tax)

		// 10 * 2.5% = 0.25 -> 0
		totals = ComputeTotals([]LineItemInput{
			{Description: "Tiny", Quantity: 1, UnitPrice: 10, TaxRate: rate("2.5")},
		})
		assert.Equal(t, int64(0), totals.Tax)
	})

	t.Run("multiple lines sum independently", func(t *testing.T) {
		totals := ComputeTotals([]LineItemInput{
			{Description: "A", Quantity: 2, UnitPrice: 500, TaxRate: rate("10")},
			{Description: "B", Quantity: 1, UnitPrice: 250, TaxRate: rate("0")},
		})
		assert.Equal(t, int64(1250), totals.Subtotal)
		assert.Equal(t, int64(100), totals.Tax)
		assert.Equal(t, int64(1350), totals.Total)
	})

	t.Run("zero rate yields zero tax", func(t *testing.T) {
		totals := ComputeTotals([]LineItemInput{
			{Description: "Flat", Quantity: 3, UnitPrice: 100, TaxRate: decimal.Zero},
		})
		assert.Equal(t, int64(300), totals.Subtotal)
		assert.Equal(t, int64(0), totals.Tax)
	})
}

func TestValidateLineItems(t *testing.T) {
	valid := LineItemInput{Description: "Work", Quantity: 1, UnitPrice: 100, TaxRate: decimal.Zero}

	assert.ErrorIs(t, ValidateLineItems(nil), ErrNoLineItems)

	for name, item := range map[string]LineItemInput{
		"blank description": {Description: "   ", Quantity: 1, UnitPrice: 100},
		"zero quantity":     {Description: "Work", Quantity: 0, UnitPrice: 100},
		"zero unit price":   {Description: "Work", Quantity: 1, UnitPrice: 0},
		"negative rate":     {Description: "Work", Quantity: 1, UnitPrice: 100, TaxRate: rate("-1")},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateLineItems([]LineItemInput{valid, item}), ErrInvalidLineItem)
		})
	}

	assert.NoError(t, ValidateLineItems([]LineItemInput{valid}))
}

func TestStatusPredicates(t *testing.T) {
	assert.False(t, InvoiceStatusDraft.Payable())
	assert.True(t, InvoiceStatusIssued.Payable())
	assert.True(t, InvoiceStatusSent.Payable())
	assert.True(t, InvoiceStatusViewed.Payable())
	assert.False(t, InvoiceStatusPaid.Payable())
	assert.False(t, InvoiceStatusVoided.Payable())

	assert.False(t, InvoiceStatusDraft.Voidable())
	assert.True(t, InvoiceStatusIssued.Voidable())
	assert.False(t, InvoiceStatusPaid.Voidable())
	assert.False(t, InvoiceStatusVoided.Voidable())
}
