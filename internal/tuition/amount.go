package tuition

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a CRM money field. Blank or non-numeric input yields an
// invalid NullDecimal, which callers treat as "unknown" rather than zero.
func ParseAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// FormatAmount renders a known amount with two decimals and "unknown" otherwise.
func FormatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return "unknown"
	}
	return d.Decimal.StringFixed(2)
}
