// Package apperr defines the closed error taxonomy shared by all services.
// Every expected failure is tagged with a Kind so the transport layer can map
// it to a status code without inspecting error internals.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindCancelled
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// Error is a tagged application error. Message is safe to return to clients;
// the wrapped cause (if any) is for logs only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Internal wraps an unexpected failure. The cause is preserved for logging
// but never serialized to clients.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

// FromContext converts a context cancellation into a Cancelled error so
// callers can tell client-abandoned requests from genuine failures. Returns
// nil if ctx is still live.
func FromContext(ctx context.Context) *Error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindCancelled, Message: "request cancelled", cause: err}
	}
	return nil
}

// KindOf extracts the Kind from err, defaulting to Internal for untagged
// errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindInternal
}

// HTTPStatus maps an error kind to the status code the API returns for it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindCancelled:
		// 499 is nginx's "client closed request"; gin has no constant for it.
		return 499
	default:
		return http.StatusInternalServerError
	}
}
