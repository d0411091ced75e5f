package shared

// DomainError is a business-rule failure the HTTP layer maps to a status
// code by its Code. Message is safe to show to API clients.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Sentinel errors shared across aggregates. Operations with more specific
// failure modes build their own DomainError with a dedicated code.
var (
	ErrNotFound              = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists         = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation            = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrencyConflict   = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState          = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientRemaining = NewDomainError("INSUFFICIENT_REMAINING", "Allocation exceeds invoice remaining amount")
)
