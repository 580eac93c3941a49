package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1/", NewHTTPClient(config.LedgerConfig{Timeout: 5 * time.Second}))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func testRecord(t *testing.T) *collection.ReconciliationRecord {
	t.Helper()
	sel := collection.NewSelectionSet()
	_, err := sel.Toggle(collection.OutstandingSale{ID: "S1", TotalAmount: decimal.RequireFromString("30"), AmountAlreadyPaid: decimal.Zero})
	require.NoError(t, err)
	b := collection.NewPaymentMethodBreakdown()
	require.NoError(t, b.SetAmount(collection.InstrumentCash, "30"))
	now := time.Now()
	record, err := collection.BuildReconciliationRecord(collection.BatchInput{
		Selection:   sel,
		Breakdown:   b,
		CollectedAt: now.Add(-time.Minute),
		Operator:    &collection.Operator{ID: "op-1"},
		Now:         now,
	}, "")
	require.NoError(t, err)
	return record
}

func TestClient_FetchPendingSales(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/sales/pending", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[
			{"id":"S1","total_amount":"30.00","amount_already_paid":"0"},
			{"id":"S2","total_amount":50,"amount_already_paid":5}
		]}`)
	})

	sales, err := client.FetchPendingSales(context.Background(), &collection.Operator{ID: "op-1", Token: "tok-123"})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.True(t, sales[1].PendingAmount().Equal(decimal.NewFromInt(45)))
}

func TestClient_SubmitReconciliation(t *testing.T) {
	t.Run("sends the record and returns the receipt", func(t *testing.T) {
		record := testRecord(t)
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/collections", r.URL.Path)
			assert.Equal(t, "Bearer ctx-token", r.Header.Get("Authorization"))

			var got collection.ReconciliationRecord
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, record.ID, got.ID)
			require.Len(t, got.Entries, 1)
			assert.True(t, got.Entries[0].AmountSettled.Equal(decimal.NewFromInt(30)))

			writeJSON(w, http.StatusCreated, `{"success":true,"data":{"record_id":"R-99","accepted_at":"2026-03-14T15:00:00Z"}}`)
		})

		ctx := WithBearerToken(context.Background(), "ctx-token")
		receipt, err := client.SubmitReconciliation(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, "R-99", receipt.RecordID)
	})

	t.Run("surfaces the ledger message verbatim", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"success":false,"error":{"code":"SALE_LOCKED","message":"Sale V-001 is under audit"}}`)
		})

		_, err := client.SubmitReconciliation(context.Background(), testRecord(t))
		var re *collection.RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "SALE_LOCKED", re.Code)
		assert.Equal(t, "Sale V-001 is under audit", re.Message)
		assert.Equal(t, http.StatusUnprocessableEntity, re.StatusCode)
	})

	t.Run("falls back to the generic message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		})

		_, err := client.SubmitReconciliation(context.Background(), testRecord(t))
		var re *collection.RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, collection.GenericRemoteMessage, re.Message)
	})

	t.Run("unauthorized means the session expired", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"success":false,"error":{"code":"UNAUTHORIZED","message":"token expired"}}`)
		})

		_, err := client.SubmitReconciliation(context.Background(), testRecord(t))
		assert.ErrorIs(t, err, collection.ErrSessionExpired)
	})

	t.Run("transport failure", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", NewHTTPClient(config.LedgerConfig{Timeout: time.Second}))

		_, err := client.SubmitReconciliation(context.Background(), testRecord(t))
		var re *collection.RemoteError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "LEDGER_UNAVAILABLE", re.Code)
		assert.Equal(t, collection.GenericRemoteMessage, re.Error())
	})
}

func TestClient_DeleteReconciliation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/collections/R-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteReconciliation(context.Background(), &collection.Operator{ID: "op-1"}, "R-1"))
}

func TestClient_ListReconciliations(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		assert.Equal(t, "2026-03-01T00:00:00Z", r.URL.Query().Get("from"))
		assert.Empty(t, r.URL.Query().Get("to"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":"R-1","grand_total":"75.00"}],"meta":{"total":11,"page":2,"page_size":10}}`)
	})

	records, total, err := client.ListReconciliations(context.Background(), &collection.Operator{ID: "op-1"},
		collection.HistoryFilter{From: &from, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, records, 1)
	assert.True(t, records[0].GrandTotal.Equal(decimal.NewFromInt(75)))
}
