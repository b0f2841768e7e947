// Package domainerrors defines the coded error taxonomy shared by services and
// the HTTP transport. Stores return sentinel errors (pkg/platform/sentinel);
// services translate them into coded errors here so handlers can map them to
// HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an engine error.
type Code string

const (
	// CodeValidation covers statutory-bound violations and malformed input:
	// advance rent over the cap, lease duration out of bounds, missing
	// required custom fields. Fully recoverable by correcting the request.
	CodeValidation Code = "validation"

	// CodeConflict covers atomic rejections with no partial state: a unit
	// that already carries a live agreement, a duplicate registration code.
	CodeConflict Code = "conflict"

	// CodePrecondition covers caller/state mismatches: accept by a party that
	// is not the named tenant, confirm by a non-landlord, accept on a
	// non-pending agreement.
	CodePrecondition Code = "precondition"

	// CodeConfigMissing means no statutory template configuration exists.
	// Fatal for every proposal until the regulator supplies one.
	CodeConfigMissing Code = "config_missing"

	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"

	// CodeInvariantViolation marks a broken model invariant surfacing from a
	// constructor or transition guard. Services usually re-code these before
	// they reach the transport.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded engine error.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps an error code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodePrecondition:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeConfigMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
