package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Errors raised by ledger backends
var (
	ErrInvalidInput   = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrOverSettlement = NewDomainError("OVER_SETTLEMENT", "Settled amount exceeds the sale's pending balance")
)
