// Package domainerrors defines the error taxonomy shared by services and transports.
//
// Services return *Error values carrying a stable Code. Transports translate the
// Code into a status and a machine-readable kind without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
	"time"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeQuotaExceeded      Code = "quota_exceeded"
	CodeRateLimited        Code = "rate_limit_exceeded"
	CodeUnverifiedTarget   Code = "unverified_target"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "service_unavailable"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error

	// Fields holds per-field validation messages.
	Fields map[string][]string
	// Limit and ResetAt describe quota exhaustion. RetryAfter is in seconds.
	Limit      int
	ResetAt    time.Time
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error with the same code and message.
// This lets tests use errors.Is against a freshly constructed value.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a domain code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// NewValidation builds a validation error with field-level messages.
func NewValidation(msg string, fields map[string][]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

// NewQuotaExceeded reports an exhausted weekly allowance. RetryAfter is the
// whole seconds from now until resetAt, rounded up, and zero when resetAt is
// unknown or already past.
func NewQuotaExceeded(limit int, resetAt, now time.Time) *Error {
	e := &Error{
		Code:    CodeQuotaExceeded,
		Message: fmt.Sprintf("weekly contact limit of %d reached", limit),
		Limit:   limit,
		ResetAt: resetAt,
	}
	if !resetAt.IsZero() {
		if wait := resetAt.Sub(now); wait > 0 {
			e.RetryAfter = int((wait + time.Second - 1) / time.Second)
		}
	}
	return e
}

// NewRateLimited reports a throttled caller.
func NewRateLimited(retryAfter int) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("too many contact requests, try again in %d seconds", retryAfter),
		RetryAfter: retryAfter,
	}
}

// As extracts the first *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Is reports whether any error in the chain carries the given code.
func Is(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// HasCode is an alias for Is kept for readability at call sites that
// branch on several codes.
func HasCode(err error, code Code) bool {
	return Is(err, code)
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}
