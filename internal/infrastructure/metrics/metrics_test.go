package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// histogramSamples returns the observation count of a histogram series
func histogramSamples(t *testing.T, reg *prometheus.Registry, name, kind string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestCollection_ObserveSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveSubmission("batch", OutcomeAccepted, 200*time.Millisecond)
	m.ObserveSubmission("batch", OutcomeAccepted, 100*time.Millisecond)
	m.ObserveSubmission("batch", OutcomeStale, time.Second)
	m.ObserveSubmission("partial", OutcomeBusy, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("batch", OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleResponsesTotal.WithLabelValues("batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissionsTotal.WithLabelValues("partial", OutcomeBusy)))
	// only accepted and rejected submissions reach the ledger and are timed
	assert.Equal(t, uint64(2), histogramSamples(t, reg, "collection_submission_duration_seconds", "batch"))
	assert.Zero(t, histogramSamples(t, reg, "collection_submission_duration_seconds", "partial"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.submissionDuration))
}

func TestCollection_Sessions(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.SessionOpened("batch")
	m.SessionOpened("batch")
	m.SessionClosed("batch", "completed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsOpen.WithLabelValues("batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsClosedTotal.WithLabelValues("batch", "completed")))
}

func TestCollection_NilIsNoop(t *testing.T) {
	var m *Collection
	assert.NotPanics(t, func() {
		m.ObserveSubmission("batch", OutcomeAccepted, time.Second)
		m.ValidationFailed("batch", "AMOUNT_MISMATCH")
		m.SessionOpened("batch")
		m.SessionClosed("batch", "idle")
		m.AddSettled("batch", 10)
	})
}

func TestCollection_GinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewWithRegistry(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
