package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/errs"
)

// serviceChargeRate is the flat surcharge applied to the full subtotal,
// one-time and daily lines alike.
var serviceChargeRate = decimal.NewFromFloat(0.20)

// Subtotal sums quantity × unit price over all items. Cached item
// totals are not trusted; use VerifyItem to reject divergence on write.
func Subtotal(items []InvoiceItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// ServiceCharge is the subtotal times the flat rate, rounded half-up to
// two decimal places.
func ServiceCharge(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(serviceChargeRate).Round(2)
}

// TotalDue is subtotal plus service charge.
func TotalDue(subtotal, serviceCharge decimal.Decimal) decimal.Decimal {
	return subtotal.Add(serviceCharge)
}

// Outstanding is total minus paid. Negative means overpaid; callers
// treat anything ≤ 0 as settled.
func Outstanding(total, paid decimal.Decimal) decimal.Decimal {
	return total.Sub(paid)
}

// ClassifyStatus derives the invoice status from the outstanding amount
// and due date.
func ClassifyStatus(outstanding decimal.Decimal, dueDate *time.Time, now time.Time) string {
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return StatusPaid
	}
	if dueDate != nil && dueDate.Before(now) {
		return StatusOverdue
	}
	return StatusPending
}

// VerifyItem checks a line's cached total against quantity × unit
// price. A mismatch means writes bypassed the calculator and is treated
// as an internal fault, not corrected silently.
func VerifyItem(it *InvoiceItem) error {
	want := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
	if !it.TotalPrice.Equal(want) {
		return errs.Invariant("invoice item %q: cached total %s != %d × %s",
			it.Name, it.TotalPrice, it.Quantity, it.UnitPrice)
	}
	return nil
}

// Recompute derives the invoice's monetary fields and status from its
// items and the given paid amount.
func Recompute(inv *Invoice, items []InvoiceItem, now time.Time) {
	inv.Subtotal = Subtotal(items)
	inv.ServiceCharge = ServiceCharge(inv.Subtotal)
	inv.Total = TotalDue(inv.Subtotal, inv.ServiceCharge)
	inv.Status = ClassifyStatus(inv.Outstanding(), inv.DueDate, now)
}
