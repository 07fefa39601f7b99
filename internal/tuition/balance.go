package tuition

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Deal is the subset of a CRM enrollment record the calculator reads.
// Money fields are kept raw so that parsing rules live in one place.
type Deal struct {
	ID              string
	Name            string
	TuitionAmount   string
	TotalAmountPaid string
	PaymentSlots    [PaymentSlotCount]string
}

// Balance is the derived financial state of a deal. Any field may be unknown
// (Valid == false) when its inputs are missing or malformed.
type Balance struct {
	Tuition          decimal.NullDecimal
	TotalPaid        decimal.NullDecimal
	Remaining        decimal.NullDecimal
	DepositShortfall decimal.NullDecimal
	Payments         []PaymentRecord

	// PaidFromRollup reports whether TotalPaid came from the deal's
	// total-paid field rather than the itemized slots.
	PaidFromRollup bool
}

// Calculate derives the balance for a deal.
//
// The total-paid rollup is authoritative whenever it is present. A present but
// unparsable rollup stays unknown; it does not fall back to the itemized slots
// and is never read as zero. Only a blank rollup falls back to the sum of the
// parsed payment records.
func (p Policy) Calculate(deal Deal) Balance {
	b := Balance{
		Tuition:  ParseAmount(deal.TuitionAmount),
		Payments: ParsePaymentRecords(deal.PaymentSlots),
	}

	if strings.TrimSpace(deal.TotalAmountPaid) != "" {
		b.TotalPaid = ParseAmount(deal.TotalAmountPaid)
		b.PaidFromRollup = true
	} else {
		b.TotalPaid = decimal.NewNullDecimal(SumPayments(b.Payments))
	}

	if b.Tuition.Valid && b.TotalPaid.Valid {
		b.Remaining = decimal.NewNullDecimal(b.Tuition.Decimal.Sub(b.TotalPaid.Decimal))
	}

	if b.TotalPaid.Valid {
		shortfall := decimal.Max(decimal.Zero, p.DepositTarget.Sub(b.TotalPaid.Decimal))
		b.DepositShortfall = decimal.NewNullDecimal(shortfall)
	}

	return b
}

// FullyPaid reports whether the remaining balance is known and not positive.
func (b Balance) FullyPaid() bool {
	return b.Remaining.Valid && !b.Remaining.Decimal.IsPositive()
}
