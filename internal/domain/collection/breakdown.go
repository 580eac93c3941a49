package collection

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Instrument is a named payment channel within a breakdown
type Instrument string

const (
	InstrumentWalletTransfer    Instrument = "wallet_transfer"
	InstrumentCash              Instrument = "cash"
	InstrumentLargeBills        Instrument = "large_bills"
	InstrumentShortage          Instrument = "shortage"
	InstrumentIncidentalExpense Instrument = "incidental_expense"
)

// Instruments lists every supported instrument in display order.
var Instruments = []Instrument{
	InstrumentWalletTransfer,
	InstrumentCash,
	InstrumentLargeBills,
	InstrumentShortage,
	InstrumentIncidentalExpense,
}

// IsValid checks if the instrument is one of the fixed set
func (i Instrument) IsValid() bool {
	switch i {
	case InstrumentWalletTransfer, InstrumentCash, InstrumentLargeBills,
		InstrumentShortage, InstrumentIncidentalExpense:
		return true
	}
	return false
}

// String returns the string representation of Instrument
func (i Instrument) String() string {
	return string(i)
}

// InstrumentAmount pairs an instrument with its declared amount.
type InstrumentAmount struct {
	Instrument Instrument      `json:"instrument"`
	Amount     decimal.Decimal `json:"amount"`
}

// PaymentMethodBreakdown holds one non-negative declared amount per instrument.
type PaymentMethodBreakdown struct {
	amounts map[Instrument]decimal.Decimal
}

// NewPaymentMethodBreakdown returns a breakdown with every instrument at zero.
func NewPaymentMethodBreakdown() *PaymentMethodBreakdown {
	b := &PaymentMethodBreakdown{}
	b.Reset()
	return b
}

// SetAmount sanitizes raw and stores it. An unknown instrument is an error;
// a negative result leaves the previous value in place.
func (b *PaymentMethodBreakdown) SetAmount(instrument Instrument, raw string) error {
	if !instrument.IsValid() {
		return newValidationError(CodeUnknownInstrument, fmt.Sprintf("unknown payment instrument %q", instrument))
	}
	v := ParseAmount(raw)
	if v.IsNegative() {
		return nil
	}
	b.amounts[instrument] = v
	return nil
}

// Amount returns the declared amount for instrument.
func (b *PaymentMethodBreakdown) Amount(instrument Instrument) decimal.Decimal {
	return b.amounts[instrument]
}

// DeclaredTotal sums all instrument amounts.
func (b *PaymentMethodBreakdown) DeclaredTotal() decimal.Decimal {
	total := decimal.Zero
	for _, i := range Instruments {
		total = total.Add(b.amounts[i])
	}
	return total
}

// Amounts returns every instrument amount in display order.
func (b *PaymentMethodBreakdown) Amounts() []InstrumentAmount {
	out := make([]InstrumentAmount, 0, len(Instruments))
	for _, i := range Instruments {
		out = append(out, InstrumentAmount{Instrument: i, Amount: b.amounts[i]})
	}
	return out
}

// Reset zeroes every instrument.
func (b *PaymentMethodBreakdown) Reset() {
	b.amounts = make(map[Instrument]decimal.Decimal, len(Instruments))
	for _, i := range Instruments {
		b.amounts[i] = decimal.Zero
	}
}

func (b *PaymentMethodBreakdown) hasNegative() (Instrument, bool) {
	for _, i := range Instruments {
		if b.amounts[i].IsNegative() {
			return i, true
		}
	}
	return "", false
}
