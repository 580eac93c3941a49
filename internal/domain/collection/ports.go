package collection

//go:generate mockgen -destination=mocks/mock_ports.go -source=ports.go LedgerGateway,IdentityProvider

import (
	"context"
	"time"
)

// SubmissionReceipt acknowledges an accepted record.
type SubmissionReceipt struct {
	RecordID   string    `json:"record_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// HistoryFilter narrows the reconciliation history listing.
type HistoryFilter struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Normalize fills paging defaults.
func (f *HistoryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// Offset returns the row offset for the current page.
func (f HistoryFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// LedgerGateway is the backend that owns sales balances and stores collections.
type LedgerGateway interface {
	// FetchPendingSales returns sales with an unpaid balance in the operator's scope.
	FetchPendingSales(ctx context.Context, operator *Operator) ([]OutstandingSale, error)
	// SubmitReconciliation stores a batch record and settles its sales.
	SubmitReconciliation(ctx context.Context, record *ReconciliationRecord) (*SubmissionReceipt, error)
	// SubmitPartialPayment stores a single-sale payment.
	SubmitPartialPayment(ctx context.Context, record *PartialPaymentRecord) (*SubmissionReceipt, error)
	// DeleteReconciliation removes a prior batch record.
	DeleteReconciliation(ctx context.Context, operator *Operator, recordID string) error
	// ListReconciliations returns prior batch records, newest first.
	ListReconciliations(ctx context.Context, operator *Operator, filter HistoryFilter) ([]ReconciliationRecord, int64, error)
}

// IdentityProvider resolves the authenticated operator for a request.
type IdentityProvider interface {
	Operator(ctx context.Context) (*Operator, error)
}
