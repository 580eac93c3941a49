package collection

import (
	"errors"

	"github.com/fsuperadmin/backend/internal/domain/shared"
)

// Validation failure codes.
const (
	CodeNoSalesSelected      = "NO_SALES_SELECTED"
	CodeIncompleteSelection  = "INCOMPLETE_SELECTION"
	CodeNegativeAmount       = "NEGATIVE_AMOUNT"
	CodeAmountMismatch       = "AMOUNT_MISMATCH"
	CodeEmptyPayment         = "EMPTY_PAYMENT"
	CodeMissingCollectedAt   = "MISSING_COLLECTION_DATE"
	CodeFutureCollectedAt    = "FUTURE_COLLECTION_DATE"
	CodeAmountExceedsLimit   = "AMOUNT_EXCEEDS_LIMIT"
	CodeDistributionMismatch = "DISTRIBUTION_MISMATCH"
	CodeUnknownInstrument    = "UNKNOWN_INSTRUMENT"
	CodeNothingPending       = "NOTHING_PENDING"
)

// GenericRemoteMessage is shown when the ledger fails without a usable message.
const GenericRemoteMessage = "The ledger could not process the collection, please try again"

// Sentinel errors surfaced by sessions and the coordinator.
var (
	ErrSessionExpired        = shared.NewDomainError("SESSION_EXPIRED", "Your session has expired, please sign in again")
	ErrSubmissionInProgress  = shared.NewDomainError("SUBMISSION_IN_PROGRESS", "A submission is already in progress")
	ErrStaleResponse         = shared.NewDomainError("STALE_RESPONSE", "The dialog was closed before the ledger responded")
	ErrSessionClosed         = shared.NewDomainError("SESSION_CLOSED", "The collection dialog is closed")
	ErrSessionNotFound       = shared.NewDomainError("NOT_FOUND", "Collection session not found")
	ErrSaleNotFound          = shared.NewDomainError("NOT_FOUND", "Sale not found")
	ErrNothingPending        = shared.NewDomainError(CodeNothingPending, "The sale has no pending balance")
	ErrSubmissionNotAllowed  = shared.NewDomainError("INVALID_STATE", "The payment cannot be submitted in its current state")
	ErrDeleteNotPermitted    = shared.NewDomainError("FORBIDDEN", "You are not allowed to delete collections")
	ErrReconciliationMissing = shared.NewDomainError("NOT_FOUND", "Collection record not found")
)

// ValidationError is a local check failure. It is raised before anything is
// sent and is fully recoverable by editing input.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// RemoteError is a rejection or transport failure reported by the ledger.
type RemoteError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return GenericRemoteMessage
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError builds a RemoteError, falling back to the generic message.
func NewRemoteError(code, message string, status int, err error) *RemoteError {
	if message == "" {
		message = GenericRemoteMessage
	}
	return &RemoteError{Code: code, Message: message, StatusCode: status, Err: err}
}

// AsRemoteError normalises any collaborator failure into a RemoteError.
// Domain errors pass through untouched.
func AsRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return NewRemoteError("LEDGER_ERROR", "", 0, err)
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
