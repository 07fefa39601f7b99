package tuition

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentSlotCount is the number of itemized payment fields on a deal.
const PaymentSlotCount = 5

// PaymentRecord is one itemized payment stored on the deal as
// "<amount>, <transaction-id>, <date>".
type PaymentRecord struct {
	Slot          int
	Amount        decimal.Decimal
	TransactionID string
	Date          string
}

// ParsePaymentRecord parses a single slot. A blank slot or one whose leading
// amount does not parse is reported as absent. Missing trailing fields default
// to empty strings and surplus fields are ignored.
func ParsePaymentRecord(slot int, raw string) (PaymentRecord, bool) {
	if strings.TrimSpace(raw) == "" {
		return PaymentRecord{}, false
	}

	fields := strings.Split(raw, ",")
	amount := ParseAmount(fields[0])
	if !amount.Valid {
		return PaymentRecord{}, false
	}

	record := PaymentRecord{
		Slot:   slot,
		Amount: amount.Decimal,
	}
	if len(fields) > 1 {
		record.TransactionID = strings.TrimSpace(fields[1])
	}
	if len(fields) > 2 {
		record.Date = strings.TrimSpace(fields[2])
	}
	return record, true
}

// ParsePaymentRecords parses every slot, keeping the well-formed ones in slot order.
func ParsePaymentRecords(slots [PaymentSlotCount]string) []PaymentRecord {
	records := make([]PaymentRecord, 0, PaymentSlotCount)
	for i, raw := range slots {
		if record, ok := ParsePaymentRecord(i+1, raw); ok {
			records = append(records, record)
		}
	}
	return records
}

// SumPayments adds up the record amounts.
func SumPayments(records []PaymentRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
