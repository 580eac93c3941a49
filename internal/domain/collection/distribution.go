package collection

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementEntry is one settled sale within a submitted record.
type SettlementEntry struct {
	SaleID                   string          `json:"sale_id"`
	AmountSettled            decimal.Decimal `json:"amount_settled"`
	OriginalTotal            decimal.Decimal `json:"original_total"`
	PreviouslyPaid           decimal.Decimal `json:"previously_paid"`
	RemainingAfterSettlement decimal.Decimal `json:"remaining_after_settlement"`
}

func newSettlementEntry(sale OutstandingSale, settled decimal.Decimal) SettlementEntry {
	return SettlementEntry{
		SaleID:                   sale.ID,
		AmountSettled:            settled,
		OriginalTotal:            sale.TotalAmount,
		PreviouslyPaid:           sale.AmountAlreadyPaid,
		RemainingAfterSettlement: maxZero(sale.TotalAmount.Sub(sale.AmountAlreadyPaid.Add(settled))),
	}
}

// ReconciliationRecord is the outbound payload of a batch collection.
// It is only produced by BuildReconciliationRecord and must not be mutated.
type ReconciliationRecord struct {
	ID          string             `json:"id"`
	OperatorID  string             `json:"operator_id"`
	Operator    string             `json:"operator"`
	Instruments []InstrumentAmount `json:"instruments"`
	Entries     []SettlementEntry  `json:"entries"`
	Memo        string             `json:"memo,omitempty"`
	CollectedAt time.Time          `json:"collected_at"`
	GrandTotal  decimal.Decimal    `json:"grand_total"`
	CreatedAt   time.Time          `json:"created_at"`
}

// SaleIDs lists the settled sales in entry order.
func (r *ReconciliationRecord) SaleIDs() []string {
	ids := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		ids[i] = e.SaleID
	}
	return ids
}

// SettledTotal sums AmountSettled across entries.
func (r *ReconciliationRecord) SettledTotal() decimal.Decimal {
	return sumSettled(r.Entries)
}

// BuildDistribution settles every selected sale in full, in selection order,
// and checks the entries add up to declaredTotal within Tolerance.
func BuildDistribution(selection *SelectionSet, declaredTotal decimal.Decimal) ([]SettlementEntry, error) {
	sales := selection.Sales()
	if len(sales) != selection.Len() {
		return nil, newValidationError(CodeIncompleteSelection, "Selection changed while building the collection")
	}
	entries := make([]SettlementEntry, 0, len(sales))
	for _, sale := range sales {
		entries = append(entries, newSettlementEntry(sale, sale.PendingAmount()))
	}
	if settled := sumSettled(entries); !WithinTolerance(settled, declaredTotal) {
		return nil, newValidationError(CodeDistributionMismatch,
			fmt.Sprintf("Distributed %s but declared %s", FormatAmount(settled), FormatAmount(declaredTotal)))
	}
	return entries, nil
}

// BuildReconciliationRecord validates the batch and materialises the record.
func BuildReconciliationRecord(in BatchInput, memo string) (*ReconciliationRecord, error) {
	if err := ValidateBatch(in); err != nil {
		return nil, err
	}
	declared := in.Breakdown.DeclaredTotal()
	entries, err := BuildDistribution(in.Selection, declared)
	if err != nil {
		return nil, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &ReconciliationRecord{
		ID:          uuid.New().String(),
		OperatorID:  in.Operator.ID,
		Operator:    in.Operator.Label(),
		Instruments: in.Breakdown.Amounts(),
		Entries:     entries,
		Memo:        strings.TrimSpace(memo),
		CollectedAt: in.CollectedAt,
		GrandTotal:  declared,
		CreatedAt:   now,
	}, nil
}

func sumSettled(entries []SettlementEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.AmountSettled)
	}
	return total
}
