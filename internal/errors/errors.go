package errors

import "fmt"

// ErrorCode represents an Aura error code.
type ErrorCode string

const (
	ErrInvalidStage   ErrorCode = "INVALID_STAGE"   // 400
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// AuraError represents a structured error with code, status, and details.
type AuraError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *AuraError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidStage creates a 400 error for relationship stages outside 1-5.
func NewInvalidStage(stage int) *AuraError {
	return &AuraError{
		Code:    ErrInvalidStage,
		Status:  400,
		Message: fmt.Sprintf("invalid relationship stage: %d (must be 1-5)", stage),
		Details: map[string]any{"stage": stage},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AuraError {
	return &AuraError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource.
func NewNotFound(identifier string) *AuraError {
	return &AuraError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AuraError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AuraError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an AuraError with the given code.
func Is(err error, code ErrorCode) bool {
	if aErr, ok := err.(*AuraError); ok {
		return aErr.Code == code
	}
	return false
}
