package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/domain/shared"
	"github.com/fsuperadmin/backend/internal/infrastructure/logger"
	"github.com/fsuperadmin/backend/internal/infrastructure/metrics"
	"github.com/fsuperadmin/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	kindBatch   = "batch"
	kindPartial = "partial"
)

// ErrDuplicateSubmission is returned when an Idempotency-Key was already used
var ErrDuplicateSubmission = shared.NewDomainError("DUPLICATE_SUBMISSION", "This collection was already submitted")

// Config holds the collection service settings
type Config struct {
	SessionTTL       time.Duration
	DeletePermission string
	IdempotencyTTL   time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithIdempotencyStore enables Idempotency-Key deduplication of submissions
func WithIdempotencyStore(store shared.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithMetrics records collection metrics
func WithMetrics(m *metrics.Collection) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger used outside request scope, e.g. by the sweeper
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// Service hosts the collection dialog sessions and talks to the ledger.
// Every session belongs to the operator that opened it.
type Service struct {
	ledger      collection.LedgerGateway
	identity    collection.IdentityProvider
	idempotency shared.IdempotencyStore
	metrics     *metrics.Collection
	logger      *zap.Logger
	clock       func() time.Time
	cfg         Config

	mu       sync.RWMutex
	batches  map[string]*collection.BatchSession
	partials map[string]*collection.PartialSession
}

// NewService creates a new collection Service
func NewService(ledger collection.LedgerGateway, identity collection.IdentityProvider, cfg Config, opts ...Option) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.DeletePermission == "" {
		cfg.DeletePermission = "collections:delete"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	s := &Service{
		ledger:   ledger,
		identity: identity,
		cfg:      cfg,
		clock:    time.Now,
		logger:   zap.NewNop(),
		batches:  make(map[string]*collection.BatchSession),
		partials: make(map[string]*collection.PartialSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest carries the operator's final details for a submission
type SubmitRequest struct {
	Memo           *string
	CollectedAt    *time.Time
	IdempotencyKey string
}

// BatchSubmitResult is returned by a successful batch submission
type BatchSubmitResult struct {
	Receipt *collection.SubmissionReceipt `json:"receipt"`
	View    collection.BatchView          `json:"session"`
}

// PartialSubmitResult is returned by a successful single-sale payment.
// PendingSales is the refreshed list so the caller can redraw its table.
type PartialSubmitResult struct {
	Receipt      *collection.SubmissionReceipt `json:"receipt"`
	View         collection.PartialView        `json:"session"`
	PendingSales []collection.OutstandingSale  `json:"pending_sales,omitempty"`
}

// =============================================================================
// Batch dialog
// =============================================================================

// OpenBatch fetches the operator's pending sales and opens a fresh batch dialog
func (s *Service) OpenBatch(ctx context.Context) (*collection.BatchView, error) {
	op, err := s.operator(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.ledger.FetchPendingSales(ctx, op)
	if err != nil {
		logger.L(ctx).Warn("Failed to load pending sales", zap.Error(err))
		return nil, collection.AsRemoteError(err)
	}

	session := collection.OpenBatchSession(uuid.New().String(), op.ID, sales, s.clock())
	s.mu.Lock()
	s.batches[session.ID()] = session
	s.mu.Unlock()
	s.metrics.SessionOpened(kindBatch)

	view := session.View()
	logger.L(logger.WithSessionID(ctx, session.ID())).Debug("Batch collection opened",
		zap.Int("available_sales", len(view.Sales)),
	)
	return &view, nil
}

// ToggleSale selects or deselects a sale in the batch dialog
func (s *Service) ToggleSale(ctx context.Context, sessionID, saleID string) (*collection.BatchView, error) {
	session, err := s.batchFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.Toggle(saleID, s.clock()); err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// SetBatchAmount updates one instrument amount in the batch dialog
func (s *Service) SetBatchAmount(ctx context.Context, sessionID string, instrument collection.Instrument, raw string) (*collection.BatchView, error) {
	session, err := s.batchFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetAmount(instrument, raw, s.clock()); err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// SetBatchDetails updates memo and collection date of the batch dialog
func (s *Service) SetBatchDetails(ctx context.Context, sessionID string, memo *string, collectedAt *time.Time) (*collection.BatchView, error) {
	session, err := s.batchFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetDetails(memo, collectedAt, s.clock()); err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// GetBatch returns the current state of a batch dialog
func (s *Service) GetBatch(ctx context.Context, sessionID string) (*collection.BatchView, error) {
	session, err := s.batchFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// SubmitBatch validates the dialog and sends the reconciliation to the ledger
func (s *Service) SubmitBatch(ctx context.Context, sessionID string, req SubmitRequest) (*BatchSubmitResult, error) {
	ctx = logger.WithSessionID(ctx, sessionID)
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "submit_batch",
		telemetry.SpanAttrSessionID, sessionID,
		telemetry.SpanAttrKind, kindBatch,
	)
	defer span.End()

	session, err := s.batchFor(ctx, sessionID)
	if err != nil {
		if errors.Is(err, collection.ErrSessionExpired) {
			s.metrics.ObserveSubmission(kindBatch, metrics.OutcomeExpired, 0)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	// A missing operator is reported by the session itself so it can close.
	op, _ := s.identity.Operator(ctx)

	release, err := s.claim(ctx, req.IdempotencyKey)
	if err != nil {
		s.metrics.ObserveSubmission(kindBatch, metrics.OutcomeDuplicate, 0)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var started time.Time
	var record *collection.ReconciliationRecord
	receipt, err := session.Submit(ctx, collection.SubmitOptions{
		Operator:    op,
		Memo:        req.Memo,
		CollectedAt: req.CollectedAt,
		Now:         s.clock(),
	}, func(ctx context.Context, r *collection.ReconciliationRecord) (*collection.SubmissionReceipt, error) {
		record = r
		started = time.Now()
		telemetry.SetAttributes(span,
			telemetry.SpanAttrRecordID, r.ID,
			telemetry.SpanAttrSalesCount, len(r.Entries),
			telemetry.SpanAttrAmount, r.GrandTotal.String(),
		)
		return s.ledger.SubmitReconciliation(ctx, r)
	})
	s.afterSubmit(ctx, kindBatch, err, started, release)
	s.reapIfClosed(kindBatch, sessionID, session.View().CloseReason, session.Closed())

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.AddSettled(kindBatch, record.GrandTotal.InexactFloat64())
	logger.L(ctx).Info("Batch collection accepted",
		zap.String("record_id", receipt.RecordID),
		zap.Int("sales", len(record.Entries)),
		zap.String("total", collection.FormatAmount(record.GrandTotal)),
	)
	return &BatchSubmitResult{Receipt: receipt, View: session.View()}, nil
}

// CloseBatch cancels the batch dialog. A response still in flight is discarded.
func (s *Service) CloseBatch(ctx context.Context, sessionID string) error {
	session, err := s.batchFor(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Close(collection.CloseReasonCancelled)
	s.reapIfClosed(kindBatch, sessionID, collection.CloseReasonCancelled, true)
	logger.L(logger.WithSessionID(ctx, sessionID)).Debug("Batch collection cancelled")
	return nil
}

// =============================================================================
// Single-sale dialog
// =============================================================================

// OpenPartial opens a single-sale payment dialog using a fresh snapshot of the sale
func (s *Service) OpenPartial(ctx context.Context, saleID string) (*collection.PartialView, error) {
	op, err := s.operator(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.ledger.FetchPendingSales(ctx, op)
	if err != nil {
		logger.L(ctx).Warn("Failed to load pending sales", zap.Error(err))
		return nil, collection.AsRemoteError(err)
	}

	var sale *collection.OutstandingSale
	for i := range sales {
		if sales[i].ID == saleID {
			sale = &sales[i]
			break
		}
	}
	if sale == nil {
		return nil, collection.ErrSaleNotFound
	}

	session, err := collection.OpenPartialSession(uuid.New().String(), op.ID, *sale, s.clock())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.partials[session.ID()] = session
	s.mu.Unlock()
	s.metrics.SessionOpened(kindPartial)

	view := session.View()
	return &view, nil
}

// SetPartialAmount updates one instrument amount of the single-sale dialog
func (s *Service) SetPartialAmount(ctx context.Context, sessionID string, instrument collection.Instrument, raw string) (*collection.PartialView, error) {
	session, err := s.partialFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetAmount(instrument, raw, s.clock()); err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// SetPartialDetails updates memo and collection date of the single-sale dialog
func (s *Service) SetPartialDetails(ctx context.Context, sessionID string, memo *string, collectedAt *time.Time) (*collection.PartialView, error) {
	session, err := s.partialFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetDetails(memo, collectedAt, s.clock()); err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// GetPartial returns the current state of a single-sale dialog
func (s *Service) GetPartial(ctx context.Context, sessionID string) (*collection.PartialView, error) {
	session, err := s.partialFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

// SubmitPartial sends the single-sale payment and refreshes the pending sales
func (s *Service) SubmitPartial(ctx context.Context, sessionID string, req SubmitRequest) (*PartialSubmitResult, error) {
	ctx = logger.WithSessionID(ctx, sessionID)
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "submit_partial",
		telemetry.SpanAttrSessionID, sessionID,
		telemetry.SpanAttrKind, kindPartial,
	)
	defer span.End()

	session, err := s.partialFor(ctx, sessionID)
	if err != nil {
		if errors.Is(err, collection.ErrSessionExpired) {
			s.metrics.ObserveSubmission(kindPartial, metrics.OutcomeExpired, 0)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	op, _ := s.identity.Operator(ctx)

	release, err := s.claim(ctx, req.IdempotencyKey)
	if err != nil {
		s.metrics.ObserveSubmission(kindPartial, metrics.OutcomeDuplicate, 0)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var started time.Time
	var record *collection.PartialPaymentRecord
	receipt, err := session.Submit(ctx, collection.SubmitOptions{
		Operator:    op,
		Memo:        req.Memo,
		CollectedAt: req.CollectedAt,
		Now:         s.clock(),
	}, func(ctx context.Context, r *collection.PartialPaymentRecord) (*collection.SubmissionReceipt, error) {
		record = r
		started = time.Now()
		telemetry.SetAttributes(span,
			telemetry.SpanAttrRecordID, r.ID,
			telemetry.SpanAttrSaleID, r.SaleID,
			telemetry.SpanAttrAmount, r.Total.String(),
		)
		return s.ledger.SubmitPartialPayment(ctx, r)
	})
	s.afterSubmit(ctx, kindPartial, err, started, release)
	s.reapIfClosed(kindPartial, sessionID, session.View().CloseReason, session.Closed())

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.AddSettled(kindPartial, record.Total.InexactFloat64())
	logger.L(ctx).Info("Partial payment accepted",
		zap.String("record_id", receipt.RecordID),
		zap.String("sale_id", record.SaleID),
		zap.String("total", collection.FormatAmount(record.Total)),
	)

	result := &PartialSubmitResult{Receipt: receipt, View: session.View()}
	if pending, err := s.ledger.FetchPendingSales(ctx, op); err != nil {
		logger.L(ctx).Warn("Failed to refresh pending sales after payment", zap.Error(err))
	} else {
		result.PendingSales = collection.FilterPending(pending)
	}
	return result, nil
}

// ClosePartial cancels the single-sale dialog
func (s *Service) ClosePartial(ctx context.Context, sessionID string) error {
	session, err := s.partialFor(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Close(collection.CloseReasonCancelled)
	s.reapIfClosed(kindPartial, sessionID, collection.CloseReasonCancelled, true)
	return nil
}

// =============================================================================
// Sales and history
// =============================================================================

// ListPendingSales returns the operator's sales with something left to collect
func (s *Service) ListPendingSales(ctx context.Context) ([]collection.OutstandingSale, error) {
	op, err := s.operator(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.ledger.FetchPendingSales(ctx, op)
	if err != nil {
		return nil, collection.AsRemoteError(err)
	}
	return collection.FilterPending(sales), nil
}

// ListHistory returns the operator's prior batch collections, newest first
func (s *Service) ListHistory(ctx context.Context, filter collection.HistoryFilter) ([]collection.ReconciliationRecord, int64, error) {
	op, err := s.operator(ctx)
	if err != nil {
		return nil, 0, err
	}
	filter.Normalize()
	records, total, err := s.ledger.ListReconciliations(ctx, op, filter)
	if err != nil {
		return nil, 0, collection.AsRemoteError(err)
	}
	return records, total, nil
}

// DeleteReconciliation removes a prior batch collection.
// Only operators holding the configured permission may delete.
func (s *Service) DeleteReconciliation(ctx context.Context, recordID string) error {
	op, err := s.operator(ctx)
	if err != nil {
		return err
	}
	if !op.HasPermission(s.cfg.DeletePermission) {
		logger.L(ctx).Warn("Collection delete refused",
			zap.String("record_id", recordID),
			zap.String("required_permission", s.cfg.DeletePermission),
		)
		return collection.ErrDeleteNotPermitted
	}
	if err := s.ledger.DeleteReconciliation(ctx, op, recordID); err != nil {
		return collection.AsRemoteError(err)
	}
	logger.L(ctx).Info("Collection deleted", zap.String("record_id", recordID))
	return nil
}

// =============================================================================
// Idle sessions
// =============================================================================

// StartSweeper closes idle sessions every interval until ctx is cancelled
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.SweepIdle(); n > 0 {
					s.logger.Info("Closed idle collection sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

// SweepIdle closes sessions idle for longer than the session TTL and
// returns how many were closed
func (s *Service) SweepIdle() int {
	cutoff := s.clock().Add(-s.cfg.SessionTTL)

	s.mu.RLock()
	var staleBatches []*collection.BatchSession
	for _, b := range s.batches {
		if b.IdleSince().Before(cutoff) {
			staleBatches = append(staleBatches, b)
		}
	}
	var stalePartials []*collection.PartialSession
	for _, p := range s.partials {
		if p.IdleSince().Before(cutoff) {
			stalePartials = append(stalePartials, p)
		}
	}
	s.mu.RUnlock()

	for _, b := range staleBatches {
		b.Close(collection.CloseReasonIdle)
		s.reapIfClosed(kindBatch, b.ID(), collection.CloseReasonIdle, true)
	}
	for _, p := range stalePartials {
		p.Close(collection.CloseReasonIdle)
		s.reapIfClosed(kindPartial, p.ID(), collection.CloseReasonIdle, true)
	}
	return len(staleBatches) + len(stalePartials)
}

// OpenSessions returns the number of open batch and partial sessions
func (s *Service) OpenSessions() (batches, partials int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches), len(s.partials)
}

// =============================================================================
// helpers
// =============================================================================

func (s *Service) operator(ctx context.Context) (*collection.Operator, error) {
	op, err := s.identity.Operator(ctx)
	if err != nil {
		return nil, err
	}
	if op == nil || op.ID == "" {
		return nil, collection.ErrSessionExpired
	}
	return op, nil
}

// batchFor returns the caller's batch session. Sessions of other operators
// are reported as not found.
func (s *Service) batchFor(ctx context.Context, sessionID string) (*collection.BatchSession, error) {
	op, err := s.operator(ctx)
	if err != nil {
		s.expireOnLostIdentity(ctx, kindBatch, sessionID, err)
		return nil, err
	}
	s.mu.RLock()
	session, ok := s.batches[sessionID]
	s.mu.RUnlock()
	if !ok || session.OperatorID() != op.ID {
		return nil, collection.ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) partialFor(ctx context.Context, sessionID string) (*collection.PartialSession, error) {
	op, err := s.operator(ctx)
	if err != nil {
		s.expireOnLostIdentity(ctx, kindPartial, sessionID, err)
		return nil, err
	}
	s.mu.RLock()
	session, ok := s.partials[sessionID]
	s.mu.RUnlock()
	if !ok || session.OperatorID() != op.ID {
		return nil, collection.ErrSessionNotFound
	}
	return session, nil
}

// expireOnLostIdentity closes the dialog behind sessionID when the operator
// identity is gone. The session cannot be matched to its owner any more, so
// it is found by id alone.
func (s *Service) expireOnLostIdentity(ctx context.Context, kind, sessionID string, err error) {
	if !errors.Is(err, collection.ErrSessionExpired) {
		return
	}
	var session interface{ Close(collection.CloseReason) }
	s.mu.RLock()
	switch kind {
	case kindBatch:
		if b, ok := s.batches[sessionID]; ok {
			session = b
		}
	case kindPartial:
		if p, ok := s.partials[sessionID]; ok {
			session = p
		}
	}
	s.mu.RUnlock()
	if session == nil {
		return
	}
	session.Close(collection.CloseReasonSessionExpired)
	s.reapIfClosed(kind, sessionID, collection.CloseReasonSessionExpired, true)
	logger.L(logger.WithSessionID(ctx, sessionID)).Warn("Collection dialog closed, operator session expired",
		zap.String("kind", kind),
	)
}

// claim marks an Idempotency-Key as used. The returned func forgets the key
// again and is called when the submission did not go through.
func (s *Service) claim(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idempotency == nil {
		return noop, nil
	}
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.cfg.IdempotencyTTL)
	if err != nil {
		// The store being down must not block collections.
		logger.L(ctx).Warn("Idempotency store unavailable", zap.Error(err))
		return noop, nil
	}
	if !fresh {
		return nil, ErrDuplicateSubmission
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.L(ctx).Warn("Failed to release idempotency key", zap.Error(err))
		}
	}, nil
}

func (s *Service) afterSubmit(ctx context.Context, kind string, err error, started time.Time, release func()) {
	elapsed := time.Duration(0)
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	outcome := metrics.OutcomeAccepted
	var ve *collection.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		outcome = metrics.OutcomeValidation
		s.metrics.ValidationFailed(kind, ve.Code)
		logger.L(ctx).Debug("Collection rejected locally", zap.String("code", ve.Code), zap.String("reason", ve.Message))
	case errors.Is(err, collection.ErrSessionExpired):
		outcome = metrics.OutcomeExpired
		logger.L(ctx).Warn("Collection dialog closed, operator session expired")
	case errors.Is(err, collection.ErrSubmissionInProgress):
		outcome = metrics.OutcomeBusy
	case errors.Is(err, collection.ErrStaleResponse):
		outcome = metrics.OutcomeStale
		logger.L(ctx).Info("Discarded ledger response for a closed dialog")
	default:
		outcome = metrics.OutcomeRejected
		logger.L(ctx).Warn("Ledger rejected collection", zap.Error(err))
	}
	s.metrics.ObserveSubmission(kind, outcome, elapsed)

	if err != nil && !errors.Is(err, collection.ErrStaleResponse) {
		release()
	}
}

// reapIfClosed drops a closed session from the registry exactly once
func (s *Service) reapIfClosed(kind, sessionID string, reason collection.CloseReason, closed bool) {
	if !closed {
		return
	}
	s.mu.Lock()
	var removed bool
	switch kind {
	case kindBatch:
		if _, ok := s.batches[sessionID]; ok {
			delete(s.batches, sessionID)
			removed = true
		}
	case kindPartial:
		if _, ok := s.partials[sessionID]; ok {
			delete(s.partials, sessionID)
			removed = true
		}
	}
	s.mu.Unlock()
	if removed {
		s.metrics.SessionClosed(kind, string(reason))
	}
}
