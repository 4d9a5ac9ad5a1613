// Package domainerrors carries the typed failures returned by identitypulse
// services. Every failure the search core produces has a Code so transports can
// map it to a status and callers can tell "no match" apart from "search failed".
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	// Search taxonomy.
	CodeUnknownCountry     Code = "unknown_country"
	CodeInvalidDate        Code = "invalid_date"
	CodeInvalidRequest     Code = "invalid_request"
	CodeNoServerForCountry Code = "no_server_for_country"
	CodeNoIdentityIndex    Code = "no_identity_index"
	CodeSearchUnavailable  Code = "search_unavailable"

	// Generic codes.
	CodeBadRequest Code = "bad_request"
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal_error"
)

// Error is a domain failure with a code, a caller-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates a domain error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
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

// Retryable reports whether the caller may retry the same request after a delay.
// The core never retries on its own.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeNoIdentityIndex, CodeSearchUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}

// CodeOf returns the code of the outermost domain error in the chain, or
// CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsRetryable reports whether err is a retryable domain error.
func IsRetryable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return false
}
