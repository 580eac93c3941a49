package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SessionState is the lifecycle state of a dialog session
type SessionState string

const (
	SessionStateEditing    SessionState = "editing"
	SessionStateSubmitting SessionState = "submitting"
	SessionStateClosed     SessionState = "closed"
)

// CloseReason records why a session was closed
type CloseReason string

const (
	CloseReasonCompleted      CloseReason = "completed"
	CloseReasonCancelled      CloseReason = "cancelled"
	CloseReasonSessionExpired CloseReason = "session_expired"
	CloseReasonIdle           CloseReason = "idle"
)

// sessionBase carries the lifecycle shared by batch and partial dialogs.
type sessionBase struct {
	mu          sync.Mutex
	id          string
	operatorID  string
	state       SessionState
	closeReason CloseReason
	lastError   string
	memo        string
	collectedAt time.Time
	openedAt    time.Time
	touchedAt   time.Time
	receipt     *SubmissionReceipt
	coord       Coordinator
}

func (s *sessionBase) init(id, operatorID string, now time.Time) {
	s.id = id
	s.operatorID = operatorID
	s.state = SessionStateEditing
	s.openedAt = now
	s.touchedAt = now
	s.collectedAt = now
}

// ID returns the session identifier.
func (s *sessionBase) ID() string { return s.id }

// OperatorID returns the owner of the session.
func (s *sessionBase) OperatorID() string { return s.operatorID }

// IdleSince returns the time of the last interaction.
func (s *sessionBase) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// Closed reports whether the session has been torn down.
func (s *sessionBase) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SessionStateClosed
}

// Close tears the session down. Any in-flight response is discarded.
func (s *sessionBase) Close(reason CloseReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(reason)
}

func (s *sessionBase) closeLocked(reason CloseReason) {
	if s.state == SessionStateClosed {
		return
	}
	s.state = SessionStateClosed
	s.closeReason = reason
	s.coord.Invalidate()
}

// editableLocked returns an error unless input may be changed.
func (s *sessionBase) editableLocked(now time.Time) error {
	switch s.state {
	case SessionStateClosed:
		return ErrSessionClosed
	case SessionStateSubmitting:
		return ErrSubmissionInProgress
	}
	s.touchedAt = now
	return nil
}

// recordFailureLocked stores the single current error message, or closes the
// session when the operator identity is gone.
func (s *sessionBase) recordFailureLocked(err error) {
	if errors.Is(err, ErrSessionExpired) {
		s.lastError = ErrSessionExpired.Message
		s.closeLocked(CloseReasonSessionExpired)
		return
	}
	s.lastError = err.Error()
}

// setDetailsLocked applies the supplied fields; nil leaves a field as is.
func (s *sessionBase) setDetailsLocked(memo *string, collectedAt *time.Time) {
	if memo != nil {
		s.memo = *memo
	}
	if collectedAt != nil {
		s.collectedAt = *collectedAt
	}
}

// SessionView is a point-in-time copy of the common session fields.
type SessionView struct {
	ID          string             `json:"id"`
	State       SessionState       `json:"state"`
	CloseReason CloseReason        `json:"close_reason,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	Memo        string             `json:"memo,omitempty"`
	CollectedAt time.Time          `json:"collected_at"`
	Instruments []InstrumentAmount `json:"instruments"`
	Receipt     *SubmissionReceipt `json:"receipt,omitempty"`
	OpenedAt    time.Time          `json:"opened_at"`
}

func (s *sessionBase) viewLocked(b *PaymentMethodBreakdown) SessionView {
	return SessionView{
		ID:          s.id,
		State:       s.state,
		CloseReason: s.closeReason,
		LastError:   s.lastError,
		Memo:        s.memo,
		CollectedAt: s.collectedAt,
		Instruments: b.Amounts(),
		Receipt:     s.receipt,
		OpenedAt:    s.openedAt,
	}
}

// SubmitOptions carries the per-submit details supplied by the operator.
type SubmitOptions struct {
	Operator    *Operator
	Memo        *string
	CollectedAt *time.Time
	Now         time.Time
}

// BatchSession is one opening of the multi-sale collection dialog. It is
// built fresh on every open and never reused once closed.
type BatchSession struct {
	sessionBase
	available map[string]OutstandingSale
	order     []string
	selection *SelectionSet
	breakdown *PaymentMethodBreakdown
}

// OpenBatchSession starts a dialog over sales. Sales with nothing pending
// are dropped.
func OpenBatchSession(id, operatorID string, sales []OutstandingSale, now time.Time) *BatchSession {
	s := &BatchSession{
		available: make(map[string]OutstandingSale),
		selection: NewSelectionSet(),
		breakdown: NewPaymentMethodBreakdown(),
	}
	s.init(id, operatorID, now)
	for _, sale := range FilterPending(sales) {
		if _, dup := s.available[sale.ID]; dup {
			continue
		}
		s.available[sale.ID] = sale
		s.order = append(s.order, sale.ID)
	}
	return s
}

// Toggle selects or deselects an available sale.
func (s *BatchSession) Toggle(saleID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(now); err != nil {
		return false, err
	}
	sale, ok := s.available[saleID]
	if !ok {
		return false, ErrSaleNotFound
	}
	selected, err := s.selection.Toggle(sale)
	if err != nil {
		return false, err
	}
	s.lastError = ""
	return selected, nil
}

// SetAmount updates one instrument.
func (s *BatchSession) SetAmount(instrument Instrument, raw string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(now); err != nil {
		return err
	}
	if err := s.breakdown.SetAmount(instrument, raw); err != nil {
		s.lastError = err.Error()
		return err
	}
	s.lastError = ""
	return nil
}

// SetDetails updates memo and collection date.
func (s *BatchSession) SetDetails(memo *string, collectedAt *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(now); err != nil {
		return err
	}
	s.setDetailsLocked(memo, collectedAt)
	return nil
}

// BatchView is a snapshot of the batch dialog for rendering.
type BatchView struct {
	SessionView
	Sales          []OutstandingSale   `json:"sales"`
	SelectedIDs    []string            `json:"selected_ids"`
	Reconciliation BatchReconciliation `json:"reconciliation"`
	VarianceLabel  string              `json:"variance_label"`
	CanSubmit      bool                `json:"can_submit"`
}

// View returns the current state, including the live variance projection.
func (s *BatchSession) View() BatchView {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales := make([]OutstandingSale, 0, len(s.order))
	for _, id := range s.order {
		sales = append(sales, s.available[id])
	}
	rec := Reconcile(s.selection, s.breakdown)
	return BatchView{
		SessionView:    s.viewLocked(s.breakdown),
		Sales:          sales,
		SelectedIDs:    s.selection.IDs(),
		Reconciliation: rec,
		VarianceLabel:  rec.Describe(),
		CanSubmit: s.state == SessionStateEditing && s.selection.Len() > 0 &&
			rec.Balanced() && rec.DeclaredTotal.IsPositive(),
	}
}

// Submit validates, builds the record and hands it to send. The session lock
// is not held while send runs. On success the selection and breakdown are
// cleared and the session closes; on failure input is left intact.
func (s *BatchSession) Submit(ctx context.Context, opts SubmitOptions,
	send func(context.Context, *ReconciliationRecord) (*SubmissionReceipt, error)) (*SubmissionReceipt, error) {
	s.mu.Lock()
	if err := s.editableLocked(opts.Now); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.setDetailsLocked(opts.Memo, opts.CollectedAt)
	record, err := BuildReconciliationRecord(BatchInput{
		Selection:   s.selection,
		Breakdown:   s.breakdown,
		CollectedAt: s.collectedAt,
		Operator:    opts.Operator,
		Now:         opts.Now,
	}, s.memo)
	if err != nil {
		s.recordFailureLocked(err)
		s.mu.Unlock()
		return nil, err
	}
	s.state = SessionStateSubmitting
	s.lastError = ""
	token := s.coord.Token()
	s.mu.Unlock()

	var receipt *SubmissionReceipt
	err = s.coord.Submit(ctx, token, func(ctx context.Context) error {
		var callErr error
		receipt, callErr = send(ctx, record)
		return callErr
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, ErrSubmissionInProgress) {
		return nil, err
	}
	if errors.Is(err, ErrStaleResponse) || s.state == SessionStateClosed || !s.coord.IsCurrent(token) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		s.state = SessionStateEditing
		s.recordFailureLocked(err)
		return nil, err
	}
	s.selection.Clear()
	s.breakdown.Reset()
	s.receipt = receipt
	s.closeLocked(CloseReasonCompleted)
	return receipt, nil
}

// SelectedTotal returns the debt currently selected.
func (s *BatchSession) SelectedTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.DebtTotal()
}

// PartialSession is one opening of the single-sale payment dialog.
type PartialSession struct {
	sessionBase
	payment *PartialPayment
}

// OpenPartialSession starts a payment dialog for sale.
func OpenPartialSession(id, operatorID string, sale OutstandingSale, now time.Time) (*PartialSession, error) {
	if !sale.HasPending() {
		return nil, ErrNothingPending
	}
	s := &PartialSession{payment: NewPartialPayment(sale)}
	s.init(id, operatorID, now)
	return s, nil
}

// SetAmount updates one instrument and re-evaluates the payment state.
func (s *PartialSession) SetAmount(instrument Instrument, raw string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(now); err != nil {
		return err
	}
	if err := s.payment.SetAmount(instrument, raw); err != nil {
		s.lastError = err.Error()
		return err
	}
	s.lastError = ""
	return nil
}

// SetDetails updates memo and collection date.
func (s *PartialSession) SetDetails(memo *string, collectedAt *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(now); err != nil {
		return err
	}
	s.setDetailsLocked(memo, collectedAt)
	return nil
}

// PartialView is a snapshot of the single-sale dialog for rendering.
type PartialView struct {
	SessionView
	Sale                     OutstandingSale `json:"sale"`
	PaymentState             PartialState    `json:"payment_state"`
	Label                    string          `json:"label,omitempty"`
	DeclaredTotal            decimal.Decimal `json:"declared_total"`
	MaxAllowed               decimal.Decimal `json:"max_allowed"`
	Excess                   decimal.Decimal `json:"excess"`
	RemainingAfterSettlement decimal.Decimal `json:"remaining_after_settlement"`
	CanSubmit                bool            `json:"can_submit"`
}

// View returns the current state of the payment.
func (s *PartialSession) View() PartialView {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.payment
	return PartialView{
		SessionView:              s.viewLocked(p.Breakdown()),
		Sale:                     p.Sale(),
		PaymentState:             p.State(),
		Label:                    p.Label(),
		DeclaredTotal:            p.DeclaredTotal(),
		MaxAllowed:               p.MaxAllowed(),
		Excess:                   p.Excess(),
		RemainingAfterSettlement: p.RemainingAfterSettlement(),
		CanSubmit:                s.state == SessionStateEditing && p.State().CanSubmit(),
	}
}

// Submit mirrors BatchSession.Submit for a single sale. A settled payment
// closes the session.
func (s *PartialSession) Submit(ctx context.Context, opts SubmitOptions,
	send func(context.Context, *PartialPaymentRecord) (*SubmissionReceipt, error)) (*SubmissionReceipt, error) {
	s.mu.Lock()
	if err := s.editableLocked(opts.Now); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.setDetailsLocked(opts.Memo, opts.CollectedAt)
	record, err := s.payment.BuildRecord(opts.Operator, s.memo, s.collectedAt, opts.Now)
	if err == nil {
		err = s.payment.BeginSubmit()
	}
	if err != nil {
		s.recordFailureLocked(err)
		s.mu.Unlock()
		return nil, err
	}
	s.state = SessionStateSubmitting
	s.lastError = ""
	token := s.coord.Token()
	s.mu.Unlock()

	var receipt *SubmissionReceipt
	err = s.coord.Submit(ctx, token, func(ctx context.Context) error {
		var callErr error
		receipt, callErr = send(ctx, record)
		return callErr
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, ErrSubmissionInProgress) {
		return nil, err
	}
	if errors.Is(err, ErrStaleResponse) || s.state == SessionStateClosed || !s.coord.IsCurrent(token) {
		return nil, ErrStaleResponse
	}
	if err != nil {
		s.state = SessionStateEditing
		s.payment.MarkFailed(err.Error())
		s.recordFailureLocked(err)
		return nil, err
	}
	s.payment.MarkSettled()
	s.receipt = receipt
	s.closeLocked(CloseReasonCompleted)
	return receipt, nil
}
