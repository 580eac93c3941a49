package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes used as the "outcome" label
const (
	OutcomeAccepted   = "accepted"
	OutcomeValidation = "validation_failed"
	OutcomeRejected   = "rejected"
	OutcomeExpired    = "session_expired"
	OutcomeBusy       = "busy"
	OutcomeStale      = "stale"
	OutcomeDuplicate  = "duplicate"
)

// Collection holds the collection workflow metrics
type Collection struct {
	registry *prometheus.Registry

	submissionsTotal     *prometheus.CounterVec
	submissionDuration   *prometheus.HistogramVec
	settledAmountTotal   *prometheus.CounterVec
	validationFailures   *prometheus.CounterVec
	staleResponsesTotal  *prometheus.CounterVec
	sessionsOpen         *prometheus.GaugeVec
	sessionsClosedTotal  *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
}

// New registers the collection metrics on a fresh registry that also carries
// the Go and process collectors
func New() *Collection {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collection metrics on reg
func NewWithRegistry(reg *prometheus.Registry) *Collection {
	factory := promauto.With(reg)
	return &Collection{
		registry: reg,

		submissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collection_submissions_total",
			Help: "Total collection submissions by kind and outcome",
		}, []string{
			"kind",    // batch, partial
			"outcome", // accepted, validation_failed, rejected, session_expired, busy, stale, duplicate
		}),

		submissionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collection_submission_duration_seconds",
			Help:    "Time spent waiting on the ledger for a submission",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),

		settledAmountTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collection_settled_amount_total",
			Help: "Total amount settled through accepted submissions",
		}, []string{"kind"}),

		validationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collection_validation_failures_total",
			Help: "Local validation failures by code",
		}, []string{"kind", "code"}),

		staleResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collection_stale_responses_total",
			Help: "Ledger responses discarded because the dialog was closed first",
		}, []string{"kind"}),

		sessionsOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "collection_sessions_open",
			Help: "Dialog sessions currently open",
		}, []string{"kind"}),

		sessionsClosedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collection_sessions_closed_total",
			Help: "Dialog sessions closed by reason",
		}, []string{"kind", "reason"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		httpRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}
}

// Registry returns the underlying registry
func (m *Collection) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Collection) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSubmission records one submission attempt
func (m *Collection) ObserveSubmission(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeAccepted || outcome == OutcomeRejected {
		m.submissionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
	if outcome == OutcomeStale {
		m.staleResponsesTotal.WithLabelValues(kind).Inc()
	}
}

// AddSettled adds an accepted amount, already converted to float for reporting
func (m *Collection) AddSettled(kind string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.settledAmountTotal.WithLabelValues(kind).Add(amount)
}

// ValidationFailed records a local validation failure
func (m *Collection) ValidationFailed(kind, code string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(kind, code).Inc()
}

// SessionOpened increments the open session gauge
func (m *Collection) SessionOpened(kind string) {
	if m == nil {
		return
	}
	m.sessionsOpen.WithLabelValues(kind).Inc()
}

// SessionClosed decrements the open session gauge and counts the reason
func (m *Collection) SessionClosed(kind, reason string) {
	if m == nil {
		return
	}
	m.sessionsOpen.WithLabelValues(kind).Dec()
	m.sessionsClosedTotal.WithLabelValues(kind, reason).Inc()
}

// GinMiddleware records request count and latency per route template
func (m *Collection) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
