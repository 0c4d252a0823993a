package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound           = "not_found"
	ErrCodeInvalidInput       = "invalid_input"
	ErrCodeStoreUnavailable   = "store_unavailable"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeRateLimited        = "rate_limited"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// NewError builds a CoreError with no underlying cause.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func invalidInput(msg string) *CoreError {
	return &CoreError{Code: ErrCodeInvalidInput, Message: msg, Err: ErrInvalidInput}
}

func notFound(msg string) *CoreError {
	return &CoreError{Code: ErrCodeNotFound, Message: msg, Err: ErrNotFound}
}

func storeUnavailable(op string, err error) *CoreError {
	return &CoreError{
		Code:    ErrCodeStoreUnavailable,
		Message: op + " failed",
		Err:     fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err),
	}
}

// AsCoreError converts err into a CoreError, defaulting to bad_request.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return &CoreError{Code: ErrCodeBadRequest, Message: err.Error(), Err: err}
}
