package collection

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartialState is the state of a single-sale payment
type PartialState string

const (
	PartialStateEditing        PartialState = "editing"
	PartialStateValid          PartialState = "valid"
	PartialStateInvalidExceeds PartialState = "invalid_exceeds"
	PartialStateInvalidEmpty   PartialState = "invalid_empty"
	PartialStateSubmitting     PartialState = "submitting"
	PartialStateSettled        PartialState = "settled"
	PartialStateFailed         PartialState = "failed"
)

// String returns the string representation of PartialState
func (s PartialState) String() string {
	return string(s)
}

// CanSubmit returns true if submission is enabled in this state
func (s PartialState) CanSubmit() bool {
	return s == PartialStateValid
}

// IsTerminal returns true once the payment has been settled
func (s PartialState) IsTerminal() bool {
	return s == PartialStateSettled
}

// PartialPayment settles one sale independently of the batch dialog.
// Unlike a batch, it accepts under-payment and only bounds the amount above
// by the sale's outstanding balance.
type PartialPayment struct {
	sale      OutstandingSale
	breakdown *PaymentMethodBreakdown
	state     PartialState
	lastError string
}

// NewPartialPayment starts a payment for sale with an empty breakdown.
func NewPartialPayment(sale OutstandingSale) *PartialPayment {
	p := &PartialPayment{
		sale:      sale,
		breakdown: NewPaymentMethodBreakdown(),
		state:     PartialStateEditing,
	}
	p.recompute()
	return p
}

// Sale returns the sale being paid.
func (p *PartialPayment) Sale() OutstandingSale {
	return p.sale
}

// Breakdown exposes the declared amounts.
func (p *PartialPayment) Breakdown() *PaymentMethodBreakdown {
	return p.breakdown
}

// State returns the current state.
func (p *PartialPayment) State() PartialState {
	return p.state
}

// LastError returns the most recent ledger failure message, if any.
func (p *PartialPayment) LastError() string {
	return p.lastError
}

// MaxAllowed is the upper bound for the declared total.
func (p *PartialPayment) MaxAllowed() decimal.Decimal {
	return p.sale.PendingAmount()
}

// DeclaredTotal sums the breakdown.
func (p *PartialPayment) DeclaredTotal() decimal.Decimal {
	return p.breakdown.DeclaredTotal()
}

// Excess is how far the declared total is above MaxAllowed, or zero.
func (p *PartialPayment) Excess() decimal.Decimal {
	return maxZero(p.DeclaredTotal().Sub(p.MaxAllowed()))
}

// RemainingAfterSettlement is the balance left once this payment lands.
func (p *PartialPayment) RemainingAfterSettlement() decimal.Decimal {
	return maxZero(p.MaxAllowed().Sub(p.DeclaredTotal()))
}

// Label describes why submission is disabled, or is empty when it is not.
func (p *PartialPayment) Label() string {
	switch p.state {
	case PartialStateInvalidEmpty:
		return "no amount"
	case PartialStateInvalidExceeds:
		return "amount exceeds limit"
	}
	return ""
}

// SetAmount updates one instrument and re-evaluates the state. Input is
// ignored while a submission is in flight or after settlement.
func (p *PartialPayment) SetAmount(instrument Instrument, raw string) error {
	if p.state == PartialStateSubmitting || p.state.IsTerminal() {
		return ErrSubmissionNotAllowed
	}
	if err := p.breakdown.SetAmount(instrument, raw); err != nil {
		return err
	}
	p.lastError = ""
	p.recompute()
	return nil
}

// recompute derives valid, invalid_empty or invalid_exceeds from the totals.
// An excess reaching Tolerance is rejected so that 0.01 above the limit fails.
func (p *PartialPayment) recompute() {
	declared := p.DeclaredTotal()
	switch {
	case !declared.IsPositive():
		p.state = PartialStateInvalidEmpty
	case declared.Sub(p.MaxAllowed()).GreaterThanOrEqual(Tolerance):
		p.state = PartialStateInvalidExceeds
	default:
		p.state = PartialStateValid
	}
}

// Validate returns the local failure for the current state, if any.
func (p *PartialPayment) Validate() error {
	switch p.state {
	case PartialStateInvalidEmpty:
		return newValidationError(CodeEmptyPayment, "Enter the amount received")
	case PartialStateInvalidExceeds:
		return newValidationError(CodeAmountExceedsLimit,
			"Amount exceeds limit: maximum allowed "+FormatAmount(p.MaxAllowed())+", excess "+FormatAmount(p.Excess()))
	case PartialStateValid:
		return nil
	}
	return ErrSubmissionNotAllowed
}

// BeginSubmit moves a valid payment to submitting.
func (p *PartialPayment) BeginSubmit() error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.state = PartialStateSubmitting
	return nil
}

// MarkSettled records a successful submission.
func (p *PartialPayment) MarkSettled() {
	p.state = PartialStateSettled
	p.lastError = ""
}

// MarkFailed records the ledger's message and returns to editing with the
// breakdown intact.
func (p *PartialPayment) MarkFailed(message string) {
	p.state = PartialStateFailed
	if message == "" {
		message = GenericRemoteMessage
	}
	p.lastError = message
	p.recompute()
}

// PartialPaymentRecord is the outbound payload of a single-sale payment.
type PartialPaymentRecord struct {
	ID          string             `json:"id"`
	OperatorID  string             `json:"operator_id"`
	Operator    string             `json:"operator"`
	SaleID      string             `json:"sale_id"`
	Instruments []InstrumentAmount `json:"instruments"`
	Entry       SettlementEntry    `json:"entry"`
	Memo        string             `json:"memo,omitempty"`
	CollectedAt time.Time          `json:"collected_at"`
	Total       decimal.Decimal    `json:"total"`
	CreatedAt   time.Time          `json:"created_at"`
}

// BuildRecord validates the payment and produces its outbound record.
func (p *PartialPayment) BuildRecord(operator *Operator, memo string, collectedAt, now time.Time) (*PartialPaymentRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateCollectedAt(collectedAt, now); err != nil {
		return nil, err
	}
	if operator == nil || operator.ID == "" {
		return nil, ErrSessionExpired
	}
	if now.IsZero() {
		now = time.Now()
	}
	declared := p.DeclaredTotal()
	// A sub-cent excess passes validation but never settles beyond the balance.
	settled := decimal.Min(declared, p.MaxAllowed())
	return &PartialPaymentRecord{
		ID:          uuid.New().String(),
		OperatorID:  operator.ID,
		Operator:    operator.Label(),
		SaleID:      p.sale.ID,
		Instruments: p.breakdown.Amounts(),
		Entry:       newSettlementEntry(p.sale, settled),
		Memo:        strings.TrimSpace(memo),
		CollectedAt: collectedAt,
		Total:       declared,
		CreatedAt:   now,
	}, nil
}
