// Package money computes order totals. Every amount is a two-decimal
// currency value; rounding happens only where a rate is applied.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on stored amounts.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Line is the part of an order item the engine needs.
type Line struct {
	TotalPrice decimal.Decimal
	Void       bool
}

// Totals is the derived financial state of an order.
type Totals struct {
	Subtotal             decimal.Decimal
	Discount             decimal.Decimal
	PostDiscountSubtotal decimal.Decimal
	TaxAmount            decimal.Decimal
	ServiceCharge        decimal.Decimal
	Tip                  decimal.Decimal
	Total                decimal.Decimal
}

// Recompute derives order totals from non-void lines and the already fixed
// discount amounts. Discount amounts are summed as stored and never
// re-derived from the current subtotal.
func Recompute(lines []Line, discounts []decimal.Decimal, tip, taxRate, serviceChargeRate decimal.Decimal) Totals {
	subtotal := RawSubtotal(lines)

	discount := decimal.Zero
	for _, amount := range discounts {
		discount = discount.Add(amount)
	}

	post := subtotal.Sub(discount)
	if post.IsNegative() {
		post = decimal.Zero
	}

	tax := Percent(post, taxRate)
	service := Percent(post, serviceChargeRate)

	return Totals{
		Subtotal:             subtotal,
		Discount:             discount,
		PostDiscountSubtotal: post,
		TaxAmount:            tax,
		ServiceCharge:        service,
		Tip:                  tip,
		Total:                post.Add(tax).Add(service).Add(tip),
	}
}

// RawSubtotal sums TotalPrice over non-void lines.
func RawSubtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Void {
			continue
		}
		subtotal = subtotal.Add(line.TotalPrice)
	}
	return subtotal
}

// LineTotal is unitPrice × quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Percent returns base × rate/100 rounded half away from zero to Scale.
// Non-positive rates yield zero.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(rate).Div(hundred).Round(Scale)
}

// Remaining is max(0, total − paid).
func Remaining(total, paid decimal.Decimal) decimal.Decimal {
	if paid.GreaterThanOrEqual(total) {
		return decimal.Zero
	}
	return total.Sub(paid)
}

// SplitEvenly divides total into parts shares of equal cents. The rounding
// remainder lands on the last share so the shares always sum to total.
func SplitEvenly(total decimal.Decimal, parts int) []decimal.Decimal {
	if parts <= 0 {
		return nil
	}
	share := total.Div(decimal.NewFromInt(int64(parts))).RoundDown(Scale)
	shares := make([]decimal.Decimal, parts)
	allocated := decimal.Zero
	for i := 0; i < parts-1; i++ {
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[parts-1] = total.Sub(allocated)
	return shares
}
