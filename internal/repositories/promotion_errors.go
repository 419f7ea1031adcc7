package repositories

import "fmt"

// PromotionErrorCode enumerates failure reasons for promotion ledger operations.
type PromotionErrorCode string

const (
	// PromotionErrorUnknown represents an unspecified failure.
	PromotionErrorUnknown PromotionErrorCode = "promotion_unknown"
	// PromotionErrorNotFound indicates no promotion matches the code.
	PromotionErrorNotFound PromotionErrorCode = "promotion_not_found"
	// PromotionErrorWindowClosed indicates the code is outside its validity window.
	PromotionErrorWindowClosed PromotionErrorCode = "promotion_window_closed"
	// PromotionErrorExhausted indicates the usage cap has been reached.
	PromotionErrorExhausted PromotionErrorCode = "promotion_exhausted"
)

// PromotionError wraps promotion-specific failures with machine readable codes.
type PromotionError struct {
	Op      string
	Code    PromotionErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PromotionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *PromotionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewPromotionError constructs a typed promotion error.
func NewPromotionError(code PromotionErrorCode, message string, err error) *PromotionError {
	if message == "" {
		message = string(code)
	}
	return &PromotionError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
