package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway error into one of the categories the transport
// layer knows how to surface. User-visible messages are generic per kind;
// the wrapped cause is only ever exposed through logs and traces.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindAuth
	KindRateLimited
	KindUnavailable
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth_error"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "backend_unavailable"
	case KindValidation:
		return "validation_error"
	default:
		return "unexpected"
	}
}

// HTTPStatus maps the kind to the status code the transport responds with
// when the error occurs before any output has been streamed.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the generic, cause-free message shown to callers.
func (k Kind) PublicMessage() string {
	switch k {
	case KindNotFound:
		return "provider not supported"
	case KindAuth:
		return "provider credential rejected"
	case KindRateLimited:
		return "provider rate limit exceeded"
	case KindUnavailable:
		return "provider backend unavailable"
	case KindValidation:
		return "invalid request"
	default:
		return "internal error"
	}
}

// Error is the structured error surfaced by the gateway core.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Errorf builds an Error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the kind from err, unwrapping as needed.
// Errors that were never classified report KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// FromStatus classifies an upstream HTTP status into a gateway error.
func FromStatus(status int, cause error, format string, args ...interface{}) *Error {
	kind := KindUnexpected
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindUnavailable
	}
	return Wrap(kind, cause, format, args...)
}
