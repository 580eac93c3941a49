package collection

import (
	"github.com/shopspring/decimal"
)

// SelectionSet is the ordered set of sales chosen for one batch together
// with the snapshot captured when each was selected.
// Every id in order has an entry in snapshots and vice versa.
type SelectionSet struct {
	order     []string
	snapshots map[string]OutstandingSale
}

// NewSelectionSet returns an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{snapshots: make(map[string]OutstandingSale)}
}

// Toggle removes the sale if selected and adds it otherwise. It returns true
// when the sale ends up selected. Sales with nothing pending are refused.
func (s *SelectionSet) Toggle(sale OutstandingSale) (bool, error) {
	if _, ok := s.snapshots[sale.ID]; ok {
		s.remove(sale.ID)
		return false, nil
	}
	if !sale.HasPending() {
		return false, ErrNothingPending
	}
	s.order = append(s.order, sale.ID)
	s.snapshots[sale.ID] = sale
	return true, nil
}

func (s *SelectionSet) remove(id string) {
	delete(s.snapshots, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.order = nil
	s.snapshots = make(map[string]OutstandingSale)
}

// Contains reports whether id is selected.
func (s *SelectionSet) Contains(id string) bool {
	_, ok := s.snapshots[id]
	return ok
}

// Len returns the number of selected sales.
func (s *SelectionSet) Len() int {
	return len(s.order)
}

// IDs returns selected ids in selection order.
func (s *SelectionSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns the cached sale for id.
func (s *SelectionSet) Snapshot(id string) (OutstandingSale, bool) {
	sale, ok := s.snapshots[id]
	return sale, ok
}

// Sales returns the cached snapshots in selection order. Ids without a
// snapshot are skipped.
func (s *SelectionSet) Sales() []OutstandingSale {
	out := make([]OutstandingSale, 0, len(s.order))
	for _, id := range s.order {
		if sale, ok := s.snapshots[id]; ok {
			out = append(out, sale)
		}
	}
	return out
}

// DebtTotal sums the pending amount over the selected snapshots.
func (s *SelectionSet) DebtTotal() decimal.Decimal {
	total := decimal.Zero
	for _, sale := range s.Sales() {
		total = total.Add(sale.PendingAmount())
	}
	return total
}

// missingSnapshots lists selected ids that lost their snapshot.
func (s *SelectionSet) missingSnapshots() []string {
	var missing []string
	for _, id := range s.order {
		if _, ok := s.snapshots[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
