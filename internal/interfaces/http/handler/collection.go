package handler

import (
	"slices"

	appcollection "github.com/fsuperadmin/backend/internal/application/collection"
	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/interfaces/http/dto"
	"github.com/fsuperadmin/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry a submission without settling twice
const IdempotencyKeyHeader = "Idempotency-Key"

// CollectionHandler exposes the batch and single-sale collection dialogs
type CollectionHandler struct {
	BaseHandler
	service *appcollection.Service
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(service *appcollection.Service) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// ListPending godoc
// @ID           listCollectionPendingSales
// @Summary      List sales with a pending balance
// @Tags         collections
// @Produce      json
// @Success      200 {object} APIResponse[[]collection.OutstandingSale]
// @Failure      401 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/pending [get]
func (h *CollectionHandler) ListPending(c *gin.Context) {
	sales, err := h.service.ListPendingSales(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sales)
}

// =============================================================================
// Batch dialog
// =============================================================================

// OpenBatch godoc
// @ID           openCollectionBatch
// @Summary      Open a multi-sale collection dialog
// @Description  Loads the operator's pending sales into a fresh dialog with an empty selection
// @Tags         collections
// @Produce      json
// @Success      201 {object} APIResponse[collection.BatchView]
// @Failure      401 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch [post]
func (h *CollectionHandler) OpenBatch(c *gin.Context) {
	view, err := h.service.OpenBatch(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// GetBatch godoc
// @ID           getCollectionBatch
// @Summary      Get a multi-sale collection dialog
// @Tags         collections
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} APIResponse[collection.BatchView]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch/{id} [get]
func (h *CollectionHandler) GetBatch(c *gin.Context) {
	view, err := h.service.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ToggleSale godoc
// @ID           toggleCollectionBatchSale
// @Summary      Select or deselect a sale
// @Tags         collections
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        sale_id path string true "Sale ID"
// @Success      200 {object} APIResponse[ToggleResult]
// @Failure      404 {object} ErrorResponse
// @Failure      410 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch/{id}/sales/{sale_id}/toggle [post]
func (h *CollectionHandler) ToggleSale(c *gin.Context) {
	saleID := c.Param("sale_id")
	view, err := h.service.ToggleSale(c.Request.Context(), c.Param("id"), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ToggleResult{
		Selected: slices.Contains(view.SelectedIDs, saleID),
		Session:  *view,
	})
}

// SetBatchAmount godoc
// @ID           setCollectionBatchAmount
// @Summary      Set the amount received through one payment method
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body dto.SetAmountRequest true "Amount"
// @Success      200 {object} APIResponse[collection.BatchView]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch/{id}/amounts [put]
func (h *CollectionHandler) SetBatchAmount(c *gin.Context) {
	var req dto.SetAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	view, err := h.service.SetBatchAmount(c.Request.Context(), c.Param("id"),
		collection.Instrument(req.Instrument), req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SetBatchDetails godoc
// @ID           setCollectionBatchDetails
// @Summary      Set memo and collection date
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body dto.SetDetailsRequest true "Details"
// @Success      200 {object} APIResponse[collection.BatchView]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch/{id}/details [put]
func (h *CollectionHandler) SetBatchDetails(c *gin.Context) {
	var req dto.SetDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	view, err := h.service.SetBatchDetails(c.Request.Context(), c.Param("id"), req.Memo, req.CollectedAt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SubmitBatch godoc
// @ID           submitCollectionBatch
// @Summary      Submit a multi-sale collection
// @Description  Checks the declared total against the selected debt and sends the record to the ledger.
// @Description  On rejection the dialog keeps its input so the operator can correct and resubmit.
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        Idempotency-Key header string false "Client generated key for safe retries"
// @Param        request body dto.SubmitCollectionRequest false "Final details"
// @Success      200 {object} APIResponse[appcollection.BatchSubmitResult]
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch/{id}/submit [post]
func (h *CollectionHandler) SubmitBatch(c *gin.Context) {
	req, ok := h.bindSubmit(c)
	if !ok {
		return
	}
	result, err := h.service.SubmitBatch(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CloseBatch godoc
// @ID           closeCollectionBatch
// @Summary      Cancel a multi-sale collection dialog
// @Description  A ledger response still in flight is discarded
// @Tags         collections
// @Param        id path string true "Session ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/batch/{id} [delete]
func (h *CollectionHandler) CloseBatch(c *gin.Context) {
	if err := h.service.CloseBatch(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// =============================================================================
// Single-sale dialog
// =============================================================================

// OpenPartial godoc
// @ID           openCollectionPartial
// @Summary      Open a single-sale payment dialog
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        request body dto.OpenPartialRequest true "Sale"
// @Success      201 {object} APIResponse[collection.PartialView]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/partial [post]
func (h *CollectionHandler) OpenPartial(c *gin.Context) {
	var req dto.OpenPartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	view, err := h.service.OpenPartial(c.Request.Context(), req.SaleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// GetPartial godoc
// @ID           getCollectionPartial
// @Summary      Get a single-sale payment dialog
// @Tags         collections
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} APIResponse[collection.PartialView]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/partial/{id} [get]
func (h *CollectionHandler) GetPartial(c *gin.Context) {
	view, err := h.service.GetPartial(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SetPartialAmount godoc
// @ID           setCollectionPartialAmount
// @Summary      Set the amount received through one payment method
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body dto.SetAmountRequest true "Amount"
// @Success      200 {object} APIResponse[collection.PartialView]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/partial/{id}/amounts [put]
func (h *CollectionHandler) SetPartialAmount(c *gin.Context) {
	var req dto.SetAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	view, err := h.service.SetPartialAmount(c.Request.Context(), c.Param("id"),
		collection.Instrument(req.Instrument), req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SetPartialDetails godoc
// @ID           setCollectionPartialDetails
// @Summary      Set memo and collection date
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body dto.SetDetailsRequest true "Details"
// @Success      200 {object} APIResponse[collection.PartialView]
// @Security     BearerAuth
// @Router       /collections/partial/{id}/details [put]
func (h *CollectionHandler) SetPartialDetails(c *gin.Context) {
	var req dto.SetDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	view, err := h.service.SetPartialDetails(c.Request.Context(), c.Param("id"), req.Memo, req.CollectedAt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SubmitPartial godoc
// @ID           submitCollectionPartial
// @Summary      Submit a single-sale payment
// @Description  The declared total may not exceed the sale's pending balance.
// @Description  On success the refreshed pending sales are returned.
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        Idempotency-Key header string false "Client generated key for safe retries"
// @Param        request body dto.SubmitCollectionRequest false "Final details"
// @Success      200 {object} APIResponse[appcollection.PartialSubmitResult]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/partial/{id}/submit [post]
func (h *CollectionHandler) SubmitPartial(c *gin.Context) {
	req, ok := h.bindSubmit(c)
	if !ok {
		return
	}
	result, err := h.service.SubmitPartial(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ClosePartial godoc
// @ID           closeCollectionPartial
// @Summary      Cancel a single-sale payment dialog
// @Tags         collections
// @Param        id path string true "Session ID"
// @Success      204
// @Security     BearerAuth
// @Router       /collections/partial/{id} [delete]
func (h *CollectionHandler) ClosePartial(c *gin.Context) {
	if err := h.service.ClosePartial(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// =============================================================================
// History
// =============================================================================

// ListHistory godoc
// @ID           listCollectionHistory
// @Summary      List prior batch collections
// @Tags         collections
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        from query string false "Collected at or after (RFC3339)"
// @Param        to query string false "Collected before (RFC3339)"
// @Success      200 {object} APIResponse[[]collection.ReconciliationRecord]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/history [get]
func (h *CollectionHandler) ListHistory(c *gin.Context) {
	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter := collection.HistoryFilter{From: q.From, To: q.To, Page: q.Page, PageSize: q.PageSize}
	filter.Normalize()

	records, total, err := h.service.ListHistory(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// DeleteRecord godoc
// @ID           deleteCollectionRecord
// @Summary      Delete a prior batch collection
// @Tags         collections
// @Param        record_id path string true "Record ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /collections/records/{record_id} [delete]
func (h *CollectionHandler) DeleteRecord(c *gin.Context) {
	if err := h.service.DeleteReconciliation(c.Request.Context(), c.Param("record_id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// bindSubmit reads the optional submit body and the Idempotency-Key header
func (h *CollectionHandler) bindSubmit(c *gin.Context) (appcollection.SubmitRequest, bool) {
	var body dto.SubmitCollectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			middleware.HandleValidationError(c, err)
			return appcollection.SubmitRequest{}, false
		}
	}
	return appcollection.SubmitRequest{
		Memo:           body.Memo,
		CollectedAt:    body.CollectedAt,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	}, true
}
