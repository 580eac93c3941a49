package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appcollection "github.com/fsuperadmin/backend/internal/application/collection"
	"github.com/fsuperadmin/backend/internal/domain/collection"
	mock_collection "github.com/fsuperadmin/backend/internal/domain/collection/mocks"
	"github.com/fsuperadmin/backend/internal/infrastructure/auth"
	"github.com/fsuperadmin/backend/internal/interfaces/http/handler"
	"github.com/fsuperadmin/backend/internal/interfaces/http/middleware"
	"github.com/fsuperadmin/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handlerNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

const (
	headerOperator    = "X-Test-Operator"
	headerPermissions = "X-Test-Permissions"
)

type collectionFixture struct {
	engine *gin.Engine
	ledger *mock_collection.MockLedgerGateway
}

// newCollectionFixture serves the collection routes with the operator taken
// from test headers instead of a JWT.
func newCollectionFixture(t *testing.T) *collectionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	ctrl := gomock.NewController(t)
	ledger := mock_collection.NewMockLedgerGateway(ctrl)
	svc := appcollection.NewService(ledger, auth.ContextIdentity{}, appcollection.Config{},
		appcollection.WithClock(func() time.Time { return handlerNow }))

	engine := gin.New()
	api := engine.Group("/api/v1", middleware.RequestID(), func(c *gin.Context) {
		if id := c.GetHeader(headerOperator); id != "" {
			op := &collection.Operator{ID: id, Email: id + "@example.com"}
			if perms := c.GetHeader(headerPermissions); perms != "" {
				op.Permissions = strings.Split(perms, ",")
			}
			c.Request = c.Request.WithContext(auth.WithOperator(c.Request.Context(), op))
		}
		c.Next()
	})
	router.CollectionRoutes(handler.NewCollectionHandler(svc)).RegisterRoutes(api)

	return &collectionFixture{engine: engine, ledger: ledger}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func (f *collectionFixture) send(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerOperator, "op-1")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func pendingSales() []collection.OutstandingSale {
	return []collection.OutstandingSale{
		{ID: "S1", Reference: "F001-1", TotalAmount: decimal.NewFromInt(30)},
		{ID: "S2", Reference: "F001-2", TotalAmount: decimal.NewFromInt(50), AmountAlreadyPaid: decimal.NewFromInt(5)},
		{ID: "S3", Reference: "F001-3", TotalAmount: decimal.NewFromInt(20), AmountAlreadyPaid: decimal.NewFromInt(20)},
	}
}

func (f *collectionFixture) openBatch(t *testing.T) string {
	t.Helper()
	f.ledger.EXPECT().FetchPendingSales(gomock.Any(), gomock.Any()).Return(pendingSales(), nil)

	w, resp := f.send(t, http.MethodPost, "/collections/batch", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view collection.BatchView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.Len(t, view.Sales, 2, "settled sales are not offered")
	return view.ID
}

func (f *collectionFixture) fillBatch(t *testing.T, id string, cash, wallet string) {
	t.Helper()
	for _, sale := range []string{"S1", "S2"} {
		w, _ := f.send(t, http.MethodPost, "/collections/batch/"+id+"/sales/"+sale+"/toggle", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w, _ := f.send(t, http.MethodPut, "/collections/batch/"+id+"/amounts", `{"instrument":"cash","amount":"`+cash+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = f.send(t, http.MethodPut, "/collections/batch/"+id+"/amounts", `{"instrument":"wallet_transfer","amount":"`+wallet+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCollectionHandler_ListPending(t *testing.T) {
	f := newCollectionFixture(t)
	f.ledger.EXPECT().FetchPendingSales(gomock.Any(), gomock.Any()).Return(pendingSales(), nil)

	w, resp := f.send(t, http.MethodGet, "/collections/pending", "")

	require.Equal(t, http.StatusOK, w.Code)
	var sales []collection.OutstandingSale
	require.NoError(t, json.Unmarshal(resp.Data, &sales))
	require.Len(t, sales, 2)
	assert.Equal(t, "S1", sales[0].ID)
	assert.Equal(t, "S2", sales[1].ID)
}

func TestCollectionHandler_RequiresOperator(t *testing.T) {
	f := newCollectionFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/pending", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_SESSION_EXPIRED")
}

func TestCollectionHandler_ToggleReportsSelection(t *testing.T) {
	f := newCollectionFixture(t)
	id := f.openBatch(t)

	w, resp := f.send(t, http.MethodPost, "/collections/batch/"+id+"/sales/S1/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	var toggled handler.ToggleResult
	require.NoError(t, json.Unmarshal(resp.Data, &toggled))
	assert.True(t, toggled.Selected)
	assert.Equal(t, []string{"S1"}, toggled.Session.SelectedIDs)

	_, resp = f.send(t, http.MethodPost, "/collections/batch/"+id+"/sales/S1/toggle", "")
	require.NoError(t, json.Unmarshal(resp.Data, &toggled))
	assert.False(t, toggled.Selected)
	assert.Empty(t, toggled.Session.SelectedIDs)

	w, resp = f.send(t, http.MethodPost, "/collections/batch/"+id+"/sales/S3/toggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)
}

func TestCollectionHandler_SubmitBatch(t *testing.T) {
	t.Run("balanced batch is accepted", func(t *testing.T) {
		f := newCollectionFixture(t)
		id := f.openBatch(t)
		f.fillBatch(t, id, "S/ 50.00", "25")

		f.ledger.EXPECT().SubmitReconciliation(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *collection.ReconciliationRecord) (*collection.SubmissionReceipt, error) {
				assert.Equal(t, []string{"S1", "S2"}, r.SaleIDs())
				assert.True(t, r.GrandTotal.Equal(decimal.NewFromInt(75)))
				assert.Equal(t, "Ruta norte", r.Memo)
				assert.Equal(t, "op-1@example.com", r.Operator)
				return &collection.SubmissionReceipt{RecordID: "R-1", AcceptedAt: handlerNow}, nil
			})

		w, resp := f.send(t, http.MethodPost, "/collections/batch/"+id+"/submit", `{"memo":"Ruta norte"}`,
			handler.IdempotencyKeyHeader, "key-1")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result appcollection.BatchSubmitResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, "R-1", result.Receipt.RecordID)
		assert.Equal(t, collection.SessionStateClosed, result.View.State)
		assert.Equal(t, collection.CloseReasonCompleted, result.View.CloseReason)

		w, _ = f.send(t, http.MethodGet, "/collections/batch/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, "completed dialogs are discarded")
	})

	t.Run("mismatch is rejected locally and input is kept", func(t *testing.T) {
		f := newCollectionFixture(t)
		id := f.openBatch(t)
		f.fillBatch(t, id, "50", "24.50")

		w, resp := f.send(t, http.MethodPost, "/collections/batch/"+id+"/submit", "")

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "ERR_COLLECTION_REJECTED", resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, collection.CodeAmountMismatch, resp.Error.Details[0].Field)

		_, resp = f.send(t, http.MethodGet, "/collections/batch/"+id, "")
		var view collection.BatchView
		require.NoError(t, json.Unmarshal(resp.Data, &view))
		assert.Equal(t, collection.SessionStateEditing, view.State)
		assert.Equal(t, []string{"S1", "S2"}, view.SelectedIDs)
		assert.True(t, view.Reconciliation.DeclaredTotal.Equal(decimal.RequireFromString("74.50")))
		assert.NotEmpty(t, view.LastError)
	})

	t.Run("ledger message is shown verbatim", func(t *testing.T) {
		f := newCollectionFixture(t)
		id := f.openBatch(t)
		f.fillBatch(t, id, "75", "0")

		f.ledger.EXPECT().SubmitReconciliation(gomock.Any(), gomock.Any()).
			Return(nil, collection.NewRemoteError("REJECTED", "Sale F001-2 was voided", http.StatusUnprocessableEntity, nil))

		w, resp := f.send(t, http.MethodPost, "/collections/batch/"+id+"/submit", "")

		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "ERR_LEDGER_FAILURE", resp.Error.Code)
		assert.Equal(t, "Sale F001-2 was voided", resp.Error.Message)

		_, resp = f.send(t, http.MethodGet, "/collections/batch/"+id, "")
		var view collection.BatchView
		require.NoError(t, json.Unmarshal(resp.Data, &view))
		assert.Equal(t, collection.SessionStateEditing, view.State)
		assert.Equal(t, "Sale F001-2 was voided", view.LastError)
	})
}

func TestCollectionHandler_RequestValidation(t *testing.T) {
	f := newCollectionFixture(t)
	id := f.openBatch(t)

	w, resp := f.send(t, http.MethodPut, "/collections/batch/"+id+"/amounts", `{"instrument":"cheque","amount":"10"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_VALIDATION", resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "instrument", resp.Error.Details[0].Field)

	w, resp = f.send(t, http.MethodPut, "/collections/batch/"+id+"/amounts", `{"instrument":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_VALIDATION", resp.Error.Code)

	w, _ = f.send(t, http.MethodPut, "/collections/batch/"+id+"/amounts", `{"instrument":"cash","amount":"abc"}`)
	assert.Equal(t, http.StatusOK, w.Code, "unparseable amounts count as zero")
}

func TestCollectionHandler_CloseBatch(t *testing.T) {
	f := newCollectionFixture(t)
	id := f.openBatch(t)

	w, _ := f.send(t, http.MethodDelete, "/collections/batch/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = f.send(t, http.MethodPost, "/collections/batch/"+id+"/sales/S1/toggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollectionHandler_SessionBelongsToOperator(t *testing.T) {
	f := newCollectionFixture(t)
	id := f.openBatch(t)

	w, _ := f.send(t, http.MethodGet, "/collections/batch/"+id, "", headerOperator, "op-2")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollectionHandler_SubmitWithoutOperatorClosesDialog(t *testing.T) {
	f := newCollectionFixture(t)
	id := f.openBatch(t)
	f.fillBatch(t, id, "75", "0")

	w, resp := f.send(t, http.MethodPost, "/collections/batch/"+id+"/submit", "", headerOperator, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_SESSION_EXPIRED", resp.Error.Code)

	// the dialog is gone even for its owner
	w, _ = f.send(t, http.MethodGet, "/collections/batch/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollectionHandler_SetDetails(t *testing.T) {
	f := newCollectionFixture(t)
	id := f.openBatch(t)

	memoOf := func(body string) string {
		t.Helper()
		w, resp := f.send(t, http.MethodPut, "/collections/batch/"+id+"/details", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var view collection.BatchView
		require.NoError(t, json.Unmarshal(resp.Data, &view))
		return view.Memo
	}

	assert.Equal(t, "Ruta norte", memoOf(`{"memo":"Ruta norte"}`))
	assert.Equal(t, "Ruta norte", memoOf(`{"collected_at":"2026-03-14T09:00:00Z"}`))
	assert.Empty(t, memoOf(`{"memo":""}`))
}

func TestCollectionHandler_PartialPayment(t *testing.T) {
	f := newCollectionFixture(t)
	f.ledger.EXPECT().FetchPendingSales(gomock.Any(), gomock.Any()).Return(pendingSales(), nil)

	w, resp := f.send(t, http.MethodPost, "/collections/partial", `{"sale_id":"S2"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view collection.PartialView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.True(t, view.MaxAllowed.Equal(decimal.NewFromInt(45)))
	id := view.ID

	_, resp = f.send(t, http.MethodPut, "/collections/partial/"+id+"/amounts", `{"instrument":"cash","amount":"45.01"}`)
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, collection.PartialStateInvalidExceeds, view.PaymentState)
	assert.False(t, view.CanSubmit)

	w, resp = f.send(t, http.MethodPost, "/collections/partial/"+id+"/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, collection.CodeAmountExceedsLimit, resp.Error.Details[0].Field)

	_, _ = f.send(t, http.MethodPut, "/collections/partial/"+id+"/amounts", `{"instrument":"cash","amount":"20"}`)

	refreshed := pendingSales()
	refreshed[1].AmountAlreadyPaid = decimal.NewFromInt(25)
	gomock.InOrder(
		f.ledger.EXPECT().SubmitPartialPayment(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *collection.PartialPaymentRecord) (*collection.SubmissionReceipt, error) {
				assert.Equal(t, "S2", r.SaleID)
				assert.True(t, r.Entry.RemainingAfterSettlement.Equal(decimal.NewFromInt(25)))
				return &collection.SubmissionReceipt{RecordID: "P-1"}, nil
			}),
		f.ledger.EXPECT().FetchPendingSales(gomock.Any(), gomock.Any()).Return(refreshed, nil),
	)

	w, resp = f.send(t, http.MethodPost, "/collections/partial/"+id+"/submit", `{"memo":"abono"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result appcollection.PartialSubmitResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "P-1", result.Receipt.RecordID)
	assert.Equal(t, collection.PartialStateSettled, result.View.PaymentState)
	require.Len(t, result.PendingSales, 2)
	assert.True(t, result.PendingSales[1].PendingAmount().Equal(decimal.NewFromInt(25)))
}

func TestCollectionHandler_OpenPartialErrors(t *testing.T) {
	f := newCollectionFixture(t)

	w, resp := f.send(t, http.MethodPost, "/collections/partial", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "sale_id", resp.Error.Details[0].Field)

	f.ledger.EXPECT().FetchPendingSales(gomock.Any(), gomock.Any()).Return(pendingSales(), nil).Times(2)

	w, resp = f.send(t, http.MethodPost, "/collections/partial", `{"sale_id":"S3"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ERR_NOTHING_PENDING", resp.Error.Code)

	w, _ = f.send(t, http.MethodPost, "/collections/partial", `{"sale_id":"S9"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollectionHandler_ListHistory(t *testing.T) {
	f := newCollectionFixture(t)
	f.ledger.EXPECT().ListReconciliations(gomock.Any(), gomock.Any(), collection.HistoryFilter{Page: 2, PageSize: 5}).
		Return([]collection.ReconciliationRecord{{ID: "R-6"}, {ID: "R-7"}}, int64(7), nil)

	w, resp := f.send(t, http.MethodGet, "/collections/history?page=2&page_size=5", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(7), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w, _ = f.send(t, http.MethodGet, "/collections/history?page_size=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCollectionHandler_DeleteRecord(t *testing.T) {
	f := newCollectionFixture(t)

	w, resp := f.send(t, http.MethodDelete, "/collections/records/R-1", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ERR_FORBIDDEN", resp.Error.Code)

	f.ledger.EXPECT().DeleteReconciliation(gomock.Any(), gomock.Any(), "R-1").Return(nil)
	w, _ = f.send(t, http.MethodDelete, "/collections/records/R-1", "", headerPermissions, "collections:delete")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
