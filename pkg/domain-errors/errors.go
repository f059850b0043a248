// Package domainerrors provides coded errors for the consent domain.
//
// Services return these so transport layers can translate outcomes into HTTP
// statuses without string matching. Stores return pkg/platform/sentinel errors;
// services wrap them with a code here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and caller branching.
type Code string

const (
	// CodeValidation marks missing or malformed caller input.
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks a request the caller can fix (alias-level problems,
	// unparsable bodies). Same HTTP class as validation.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks an absent consent, transaction, or template.
	CodeNotFound Code = "not_found"
	// CodeConflict marks single-use violations: transaction already verified or
	// consumed, channel mismatch, illegal status transition.
	CodeConflict Code = "conflict"
	// CodeExpired marks an evidence transaction past its TTL.
	CodeExpired Code = "expired"
	// CodeConfiguration marks an operator problem, such as no active template
	// for a product/purpose. Surfaced like caller errors but labeled distinctly.
	CodeConfiguration Code = "configuration_error"
	// CodeUnauthorized marks missing or invalid operator credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeTimeout marks a cancelled or deadline-exceeded unit of work.
	CodeTimeout Code = "timeout"
	// CodeInternal marks infrastructure failures. Never masked, never retried
	// by the core.
	CodeInternal Code = "internal_error"
)

// DomainError carries a code, a caller-safe message, and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New builds a DomainError with no underlying cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code on err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost caller-safe message, or a generic one.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status. Configuration problems surface
// as 400s so callers see a definitive failure, per the error handling design.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeConfiguration:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeExpired:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
