// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types shared by every dispatcher operation.

package api

import "fmt"

// ErrorCode classifies the failure taxonomy a dispatcher operation can report.
// Callers switch on Code rather than comparing error values.
type ErrorCode int

const (
	// ErrCodeResourceExhausted covers allocation/engine-capacity failures during
	// an arm sequence, and submission attempted during pool teardown.
	ErrCodeResourceExhausted ErrorCode = iota
	// ErrCodeInvalidArgument covers caller misuse of an operation's parameters.
	ErrCodeInvalidArgument
	// ErrCodeNotFound covers replace/cancel/abort against an unknown id.
	ErrCodeNotFound
	// ErrCodeInvalidHandle covers a caller-supplied handle the engine rejects.
	ErrCodeInvalidHandle
	// ErrCodeEngine wraps a failure reported by the underlying worker engine.
	// Callers never observe the engine's own error values directly.
	ErrCodeEngine
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeInvalidHandle:
		return "invalid_handle"
	case ErrCodeEngine:
		return "engine_error"
	default:
		return "unknown"
	}
}

// Error is the single tagged error shape every public dispatcher operation
// returns.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a tagged error without a wrapped cause.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapEngineError tags an underlying engine failure as EngineError.
func WrapEngineError(cause error) *Error {
	return &Error{Code: ErrCodeEngine, Message: "engine failure", Cause: cause}
}

// Convenience constructors for the four caller-facing failure kinds.

func ErrResourceExhausted(message string) *Error { return NewError(ErrCodeResourceExhausted, message) }
func ErrInvalidArgument(message string) *Error   { return NewError(ErrCodeInvalidArgument, message) }
func ErrNotFound(message string) *Error          { return NewError(ErrCodeNotFound, message) }
func ErrInvalidHandle(message string) *Error     { return NewError(ErrCodeInvalidHandle, message) }
