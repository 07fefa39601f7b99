package tuition

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentType selects what a checkout charges for.
type PaymentType string

const (
	PaymentTypeApplicationFee PaymentType = "appfee"
	PaymentTypeDeposit        PaymentType = "deposit"
	PaymentTypeRemaining      PaymentType = "remaining"
	PaymentTypeCustom         PaymentType = "custom"
)

// ParsePaymentType maps the request value to a PaymentType. Absent or
// unrecognized values select the remaining balance.
func ParsePaymentType(raw string) PaymentType {
	switch PaymentType(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentTypeApplicationFee:
		return PaymentTypeApplicationFee
	case PaymentTypeDeposit:
		return PaymentTypeDeposit
	case PaymentTypeCustom:
		return PaymentTypeCustom
	default:
		return PaymentTypeRemaining
	}
}

// Label is the customer-facing name of the payment type.
func (t PaymentType) Label() string {
	switch t {
	case PaymentTypeApplicationFee:
		return "Application Fee"
	case PaymentTypeDeposit:
		return "Program Deposit"
	case PaymentTypeCustom:
		return "Custom Payment"
	default:
		return "Remaining Program Balance"
	}
}

// Rejection reasons returned by Resolve.
var (
	ErrInvalidAmount        = errors.New("custom amount must be a number")
	ErrAmountBelowMinimum   = errors.New("custom amount is below the minimum payment")
	ErrAmountExceedsBalance = errors.New("custom amount exceeds the remaining balance")
	ErrBalanceUnavailable   = errors.New("balance cannot be determined from the enrollment record")
	ErrNoBalanceDue         = errors.New("no balance due")
)

// Resolution is a validated base charge before surcharge.
type Resolution struct {
	Type       PaymentType
	BaseAmount decimal.Decimal
	Label      string
}

// Resolve turns a requested payment type into a base amount or a rejection.
// Comparisons are made on unrounded values.
func (p Policy) Resolve(t PaymentType, customRaw string, b Balance) (*Resolution, error) {
	if b.FullyPaid() {
		return nil, ErrNoBalanceDue
	}

	var base decimal.NullDecimal
	switch t {
	case PaymentTypeApplicationFee:
		base = decimal.NewNullDecimal(p.ApplicationFee)
	case PaymentTypeDeposit:
		base = b.DepositShortfall
	case PaymentTypeCustom:
		amount, err := p.customAmount(customRaw, b)
		if err != nil {
			return nil, err
		}
		base = decimal.NewNullDecimal(amount)
	default:
		t = PaymentTypeRemaining
		base = b.Remaining
	}

	if !base.Valid {
		return nil, ErrBalanceUnavailable
	}
	if !base.Decimal.IsPositive() {
		return nil, ErrNoBalanceDue
	}

	return &Resolution{
		Type:       t,
		BaseAmount: base.Decimal,
		Label:      t.Label(),
	}, nil
}

func (p Policy) customAmount(raw string, b Balance) (decimal.Decimal, error) {
	parsed := ParseAmount(raw)
	if !parsed.Valid {
		return decimal.Zero, ErrInvalidAmount
	}
	amount := parsed.Decimal
	if amount.LessThan(p.MinimumCustomPayment) {
		return decimal.Zero, ErrAmountBelowMinimum
	}
	if !b.Remaining.Valid {
		return decimal.Zero, ErrBalanceUnavailable
	}
	if amount.GreaterThan(b.Remaining.Decimal) {
		return decimal.Zero, ErrAmountExceedsBalance
	}
	return amount, nil
}
