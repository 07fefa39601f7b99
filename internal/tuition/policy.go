// Package tuition holds the balance and charge rules for program enrollments.
// It has no knowledge of the CRM, the payment processor or HTML rendering.
package tuition

import "github.com/shopspring/decimal"

// Policy carries the business constants used by every calculation.
type Policy struct {
	ApplicationFee         decimal.Decimal
	DepositTarget          decimal.Decimal
	DepositPromptThreshold decimal.Decimal
	MinimumCustomPayment   decimal.Decimal
	SurchargeRate          decimal.Decimal
}

// DefaultPolicy returns the production pricing rules.
func DefaultPolicy() Policy {
	return Policy{
		ApplicationFee:         decimal.NewFromInt(250),
		DepositTarget:          decimal.NewFromInt(2500),
		DepositPromptThreshold: decimal.NewFromInt(2250),
		MinimumCustomPayment:   decimal.NewFromInt(250),
		SurchargeRate:          decimal.RequireFromString("0.035"),
	}
}
