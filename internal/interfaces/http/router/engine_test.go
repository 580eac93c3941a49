package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appcollection "github.com/fsuperadmin/backend/internal/application/collection"
	"github.com/fsuperadmin/backend/internal/domain/collection"
	mock_collection "github.com/fsuperadmin/backend/internal/domain/collection/mocks"
	"github.com/fsuperadmin/backend/internal/infrastructure/auth"
	"github.com/fsuperadmin/backend/internal/infrastructure/config"
	"github.com/fsuperadmin/backend/internal/infrastructure/metrics"
	"github.com/fsuperadmin/backend/internal/interfaces/http/handler"
	"github.com/fsuperadmin/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type engineFixture struct {
	engine *gin.Engine
	ledger *mock_collection.MockLedgerGateway
	jwt    *auth.JWTService
}

func newEngineFixture(t *testing.T, rateLimit bool) *engineFixture {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "cobro", Env: "test"},
		JWT: config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			Issuer:                "cobro-test",
			AccessTokenExpiration: 15 * time.Minute,
		},
		HTTP: config.HTTPConfig{
			MaxBodySize:       1 << 20,
			RateLimitEnabled:  rateLimit,
			RateLimitRequests: 1,
			RateLimitWindow:   time.Hour,
			RateLimitBurst:    1,
		},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Telemetry: config.TelemetryConfig{Enabled: false},
	}

	ctrl := gomock.NewController(t)
	ledger := mock_collection.NewMockLedgerGateway(ctrl)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := appcollection.NewService(ledger, auth.ContextIdentity{}, appcollection.Config{},
		appcollection.WithMetrics(m))
	jwtSvc := auth.NewJWTService(cfg.JWT)

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
	t.Cleanup(limiter.Stop)

	engine, err := NewEngine(EngineDeps{
		Config:      cfg,
		Logger:      zap.NewNop(),
		JWT:         jwtSvc,
		Metrics:     m,
		RateLimiter: limiter,
		Collections: handler.NewCollectionHandler(svc),
		System:      handler.NewSystemHandler("test", nil, svc),
	})
	require.NoError(t, err)
	return &engineFixture{engine: engine, ledger: ledger, jwt: jwtSvc}
}

func (f *engineFixture) do(t *testing.T, method, path string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authed {
		token, _, err := f.jwt.GenerateToken(auth.GenerateTokenInput{OperatorID: "op-1", Email: "cobrador@example.com"})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestNewEngine_HealthRoutes(t *testing.T) {
	f := newEngineFixture(t, false)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", false).Code)

	w := f.do(t, http.MethodGet, "/ready", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not_configured")

	w = f.do(t, http.MethodGet, "/metrics", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestNewEngine_RequiresToken(t *testing.T) {
	f := newEngineFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/v1/collections/pending", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewEngine_ServesCollections(t *testing.T) {
	f := newEngineFixture(t, false)
	f.ledger.EXPECT().FetchPendingSales(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op *collection.Operator) ([]collection.OutstandingSale, error) {
			assert.Equal(t, "op-1", op.ID)
			assert.NotEmpty(t, op.Token)
			return []collection.OutstandingSale{
				{ID: "S1", TotalAmount: decimal.NewFromInt(30)},
				{ID: "S2", TotalAmount: decimal.NewFromInt(20), AmountAlreadyPaid: decimal.NewFromInt(20)},
			}, nil
		})

	w := f.do(t, http.MethodGet, "/api/v1/collections/pending", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"S1"`)
	assert.NotContains(t, w.Body.String(), `"id":"S2"`)

	w = f.do(t, http.MethodGet, "/api/v1/system/info", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open_batch_sessions":0`)
}

func TestNewEngine_RateLimitsSubmits(t *testing.T) {
	f := newEngineFixture(t, true)

	// The limiter runs before the handler, so unknown sessions still spend tokens.
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/collections/batch/missing/submit", true).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodPost, "/api/v1/collections/batch/missing/submit", true).Code)

	// Non-submit routes are not limited.
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/collections/batch/missing", true).Code)
}
