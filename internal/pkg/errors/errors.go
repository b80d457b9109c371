package errors

import "fmt"

// AppError carries an error code alongside the message so callers can
// distinguish the engine's failure classes without string matching.
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Error codes for the engine's failure taxonomy.
const (
	ErrCodeStore            = "STORE_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeDegenerateInput  = "DEGENERATE_INPUT"
	ErrCodeNotifier         = "NOTIFIER_ERROR"
)

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with an AppError.
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Internal: err}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// StoreError marks a transient store failure; callers catch these at
// phase boundaries and continue with empty results.
func StoreError(message string, err error) *AppError {
	return Wrap(err, ErrCodeStore, message)
}

// NotFound creates a not found error.
func NotFound(entity string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", entity))
}

// ValidationError creates a validation error with field details.
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message).WithDetails(details)
}

// InsufficientData marks a series too short to evaluate. Not a failure;
// callers skip the group.
func InsufficientData(message string) *AppError {
	return New(ErrCodeInsufficientData, message)
}

// DegenerateInput marks math that cannot be evaluated (zero stddev,
// zero budget amount, zero average).
func DegenerateInput(message string) *AppError {
	return New(ErrCodeDegenerateInput, message)
}

// NotifierError marks a delivery failure; logged, never propagated past
// the alert engine.
func NotifierError(err error) *AppError {
	return Wrap(err, ErrCodeNotifier, "notification delivery failed")
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	if e, ok := err.(*AppError); ok {
		return e.Code == code
	}
	return false
}
