package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeTotals sums the line items and applies VAT, rounding half away from
// zero to whole currency units.
func ComputeTotals(items []OrderItem, taxRate decimal.Decimal) (before, after int64, err error) {
	if len(items) == 0 {
		return 0, 0, ErrEmptyOrder
	}
	if taxRate.IsNegative() {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidTaxRate, taxRate)
	}

	for i, it := range items {
		if it.Quantity <= 0 || it.UnitPrice < 0 {
			return 0, 0, fmt.Errorf("%w: line %d", ErrInvalidItem, i)
		}
		before += it.Subtotal()
	}

	after = decimal.NewFromInt(before).
		Mul(decimal.NewFromInt(1).Add(taxRate)).
		Round(0).
		IntPart()

	return before, after, nil
}

// Recalculate refreshes both totals from the line items.
func (o *Order) Recalculate() error {
	before, after, err := ComputeTotals(o.Items, o.TaxRate)
	if err != nil {
		return err
	}
	o.TotalBeforeTax = before
	o.TotalAfterTax = after
	return nil
}
