package tuition

import "github.com/shopspring/decimal"

// Offers lists the payment actions shown on the balance summary.
type Offers struct {
	ApplicationFee bool
	Deposit        bool
	Remaining      bool
	Custom         bool

	CustomMin decimal.Decimal
	CustomMax decimal.Decimal
}

// Any reports whether at least one payment action is available.
func (o Offers) Any() bool {
	return o.ApplicationFee || o.Deposit || o.Remaining || o.Custom
}

// Offers decides which payment actions to show for a balance.
//
// The application fee is offered only before any payment. The deposit is
// offered once something has been paid but the total is still under the
// prompt threshold, which sits below the deposit target.
// A fully paid enrollment gets no actions at all.
func (p Policy) Offers(b Balance) Offers {
	var o Offers
	if b.FullyPaid() {
		return o
	}

	if b.TotalPaid.Valid {
		paid := b.TotalPaid.Decimal
		o.ApplicationFee = paid.IsZero()
		o.Deposit = paid.IsPositive() &&
			paid.LessThan(p.DepositPromptThreshold) &&
			b.DepositShortfall.Valid && b.DepositShortfall.Decimal.IsPositive()
	}

	if b.Remaining.Valid {
		remaining := b.Remaining.Decimal
		o.Remaining = remaining.IsPositive()
		if remaining.GreaterThanOrEqual(p.MinimumCustomPayment) {
			o.Custom = true
			o.CustomMin = p.MinimumCustomPayment
			o.CustomMax = remaining
		}
	}

	return o
}
