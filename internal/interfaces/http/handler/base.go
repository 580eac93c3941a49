package handler

import (
	"errors"
	"net/http"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/domain/shared"
	"github.com/fsuperadmin/backend/internal/infrastructure/logger"
	"github.com/fsuperadmin/backend/internal/interfaces/http/dto"
	"github.com/fsuperadmin/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps service errors onto the API error envelope.
//
// Local check failures answer 422 with the failing rule in details, ledger
// failures answer 502 with the ledger's message verbatim, and domain errors
// go through the code mapping.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validationErr *collection.ValidationError
	if errors.As(err, &validationErr) {
		h.rejected(c, validationErr)
		return
	}

	var remoteErr *collection.RemoteError
	if errors.As(err, &remoteErr) {
		logger.L(c.Request.Context()).Warn("ledger failure",
			zap.String("ledger_code", remoteErr.Code),
			zap.Int("ledger_status", remoteErr.StatusCode),
			zap.Error(remoteErr.Err),
		)
		code := dto.ErrCodeLedgerFailure
		if mapped, ok := dto.DomainErrorCodeMapping[remoteErr.Code]; ok {
			code = mapped
		}
		h.ErrorWithCode(c, code, remoteErr.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

func (h *BaseHandler) rejected(c *gin.Context, err *collection.ValidationError) {
	code := dto.ErrCodeCollectionRejected
	c.Set(middleware.ErrorCodeKey, code)
	resp := dto.NewErrorResponseWithRequestID(code, err.Message, getRequestID(c))
	resp.Error.Details = []dto.ValidationDetail{{Field: err.Code, Message: err.Message}}
	c.JSON(http.StatusUnprocessableEntity, resp)
}
