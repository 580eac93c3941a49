package collection

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutstandingSale is a sale with an unpaid balance as reported by the ledger.
// Snapshots are immutable for the lifetime of one dialog session.
type OutstandingSale struct {
	ID                string          `json:"id"`
	Reference         string          `json:"reference,omitempty"`
	CustomerName      string          `json:"customer_name,omitempty"`
	SoldAt            time.Time       `json:"sold_at"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AmountAlreadyPaid decimal.Decimal `json:"amount_already_paid"`
}

// PendingAmount returns max(0, total - paid). It is derived on every call.
func (s OutstandingSale) PendingAmount() decimal.Decimal {
	return maxZero(s.TotalAmount.Sub(s.AmountAlreadyPaid))
}

// HasPending reports whether anything is left to collect.
func (s OutstandingSale) HasPending() bool {
	return s.PendingAmount().IsPositive()
}

// FilterPending drops sales with nothing left to collect, preserving order.
func FilterPending(sales []OutstandingSale) []OutstandingSale {
	out := make([]OutstandingSale, 0, len(sales))
	for _, s := range sales {
		if s.HasPending() {
			out = append(out, s)
		}
	}
	return out
}

// Operator is the authenticated identity submitting collections.
type Operator struct {
	ID          string   `json:"id"`
	Email       string   `json:"email,omitempty"`
	Username    string   `json:"username,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	// Token is the bearer credential forwarded to a remote ledger.
	Token string `json:"-"`
}

// Label returns the most readable identifier for audit trails.
func (o *Operator) Label() string {
	if o == nil {
		return ""
	}
	if o.Email != "" {
		return o.Email
	}
	if o.Username != "" {
		return o.Username
	}
	return o.ID
}

// HasPermission checks whether the operator holds the given permission.
func (o *Operator) HasPermission(permission string) bool {
	if o == nil {
		return false
	}
	for _, p := range o.Permissions {
		if p == permission || p == "*" {
			return true
		}
	}
	return false
}
