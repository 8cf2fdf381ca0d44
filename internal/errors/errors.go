package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a kifu error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"      // remote status, 0 for transport errors
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE" // 500
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// KifuError represents a structured error with code, status, and details.
type KifuError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *KifuError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *KifuError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KifuError {
	return &KifuError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a player name the remote does not know.
func NewNotFound(name string) *KifuError {
	return &KifuError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("player not found: %s", name),
		Details: map[string]any{"name": name},
	}
}

// NewFetchFailed creates an error for a request that did not produce a usable response.
// Status is the last HTTP status seen, or 0 when no response arrived at all.
func NewFetchFailed(url string, status int, cause error) *KifuError {
	msg := fmt.Sprintf("fetch %s: status %d", url, status)
	if status == 0 && cause != nil {
		msg = fmt.Sprintf("fetch %s: %v", url, cause)
	}
	return &KifuError{
		Code:    ErrFetchFailed,
		Status:  status,
		Message: msg,
		Details: map[string]any{"url": url, "status": status},
		Err:     cause,
	}
}

// NewStoreUnavailable creates a 500 error for a cache store that cannot be opened.
func NewStoreUnavailable(err error) *KifuError {
	msg := "store unavailable"
	if err != nil {
		msg = fmt.Sprintf("store unavailable: %v", err)
	}
	return &KifuError{
		Code:    ErrStoreUnavailable,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *KifuError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &KifuError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error is a KifuError with the given code.
func Is(err error, code ErrorCode) bool {
	var kErr *KifuError
	if stderrors.As(err, &kErr) {
		return kErr.Code == code
	}
	return false
}

// StatusOf returns the Status of a KifuError, or 0 for any other error.
func StatusOf(err error) int {
	var kErr *KifuError
	if stderrors.As(err, &kErr) {
		return kErr.Status
	}
	return 0
}
