package tuition

import "github.com/shopspring/decimal"

// Charge is a base amount with the card surcharge applied. Values are exact;
// rounding happens only when the charge is submitted or displayed.
type Charge struct {
	Base      decimal.Decimal
	Surcharge decimal.Decimal
	Total     decimal.Decimal
}

// ApplySurcharge adds the card processing fee to base.
func (p Policy) ApplySurcharge(base decimal.Decimal) Charge {
	surcharge := base.Mul(p.SurchargeRate)
	return Charge{
		Base:      base,
		Surcharge: surcharge,
		Total:     base.Add(surcharge),
	}
}

// TotalMinorUnits is the total in cents, rounded half up.
func (c Charge) TotalMinorUnits() int64 {
	return c.Total.Shift(2).Round(0).IntPart()
}

// RoundedTotal is the amount the customer is charged, in currency units.
func (c Charge) RoundedTotal() decimal.Decimal {
	return decimal.New(c.TotalMinorUnits(), -2)
}

// RoundedSurcharge is the fee shown to the customer. It is derived from the
// rounded total so that base + fee always equals the charged amount.
func (c Charge) RoundedSurcharge() decimal.Decimal {
	return c.RoundedTotal().Sub(c.Base.Round(2))
}

// Quote is a resolved payment with its surcharge applied.
type Quote struct {
	Resolution
	Charge
}

// Quote resolves the payment type and applies the surcharge in one step.
func (p Policy) Quote(t PaymentType, customRaw string, b Balance) (*Quote, error) {
	res, err := p.Resolve(t, customRaw, b)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Resolution: *res,
		Charge:     p.ApplySurcharge(res.BaseAmount),
	}, nil
}
