package collection

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VarianceStatus classifies the gap between declared and selected debt.
type VarianceStatus string

const (
	VarianceBalanced VarianceStatus = "balanced"
	VarianceExceeds  VarianceStatus = "exceeds"
	VarianceMissing  VarianceStatus = "missing"
)

// BatchReconciliation is the read-only comparison of declared payment and
// selected debt. It is recomputed on every read and never stored.
type BatchReconciliation struct {
	DeclaredTotal     decimal.Decimal `json:"declared_total"`
	SelectedDebtTotal decimal.Decimal `json:"selected_debt_total"`
	Variance          decimal.Decimal `json:"variance"`
}

// Reconcile projects the current variance without side effects.
func Reconcile(selection *SelectionSet, breakdown *PaymentMethodBreakdown) BatchReconciliation {
	declared := breakdown.DeclaredTotal()
	debt := selection.DebtTotal()
	return BatchReconciliation{
		DeclaredTotal:     declared,
		SelectedDebtTotal: debt,
		Variance:          declared.Sub(debt),
	}
}

// Status returns balanced when the variance is within Tolerance.
func (r BatchReconciliation) Status() VarianceStatus {
	switch {
	case r.Variance.Abs().LessThanOrEqual(Tolerance):
		return VarianceBalanced
	case r.Variance.IsPositive():
		return VarianceExceeds
	default:
		return VarianceMissing
	}
}

// Balanced reports whether declared equals debt within Tolerance.
func (r BatchReconciliation) Balanced() bool {
	return r.Status() == VarianceBalanced
}

// Describe renders the variance as "exceeds by X", "missing X" or "balanced".
func (r BatchReconciliation) Describe() string {
	switch r.Status() {
	case VarianceExceeds:
		return "exceeds by " + FormatAmount(r.Variance)
	case VarianceMissing:
		return "missing " + FormatAmount(r.Variance.Neg())
	default:
		return "balanced"
	}
}

// BatchInput gathers everything the batch gate inspects.
type BatchInput struct {
	Selection   *SelectionSet
	Breakdown   *PaymentMethodBreakdown
	CollectedAt time.Time
	Operator    *Operator
	Now         time.Time
}

// ValidateBatch runs the submission checks in order and returns the first
// failure. A missing operator yields ErrSessionExpired, which callers must
// treat as fatal for the dialog.
func ValidateBatch(in BatchInput) error {
	if in.Selection == nil || in.Selection.Len() == 0 {
		return newValidationError(CodeNoSalesSelected, "Select at least one sale to collect")
	}
	if missing := in.Selection.missingSnapshots(); len(missing) > 0 {
		return newValidationError(CodeIncompleteSelection,
			fmt.Sprintf("Sale %s is missing its balance snapshot, reopen the dialog", missing[0]))
	}
	if in.Breakdown == nil {
		return newValidationError(CodeEmptyPayment, "Enter the amount received")
	}
	if inst, neg := in.Breakdown.hasNegative(); neg {
		return newValidationError(CodeNegativeAmount,
			fmt.Sprintf("Amount for %s cannot be negative", inst))
	}

	rec := Reconcile(in.Selection, in.Breakdown)
	if !rec.Balanced() {
		return newValidationError(CodeAmountMismatch,
			fmt.Sprintf("Declared total %s does not match selected debt %s: %s",
				FormatAmount(rec.DeclaredTotal), FormatAmount(rec.SelectedDebtTotal), rec.Describe()))
	}
	if !rec.DeclaredTotal.IsPositive() {
		return newValidationError(CodeEmptyPayment, "At least one payment method must have an amount")
	}
	if err := validateCollectedAt(in.CollectedAt, in.Now); err != nil {
		return err
	}
	if in.Operator == nil || in.Operator.ID == "" {
		return ErrSessionExpired
	}
	return nil
}

func validateCollectedAt(collectedAt, now time.Time) error {
	if collectedAt.IsZero() {
		return newValidationError(CodeMissingCollectedAt, "Collection date is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	if collectedAt.After(now) {
		return newValidationError(CodeFutureCollectedAt, "Collection date cannot be in the future")
	}
	return nil
}
