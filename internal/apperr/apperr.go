package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for propagation and HTTP mapping.
type Kind string

const (
	// KindUnauthorized marks a missing, malformed, or expired credential.
	KindUnauthorized Kind = "Unauthorized"
	// KindForbidden marks an authenticated caller without entitlement.
	KindForbidden Kind = "Forbidden"
	// KindNotFound marks an absent bucket or resource where absence is the failure.
	KindNotFound Kind = "NotFound"
	// KindOperationNotValid marks a client-visible business-rule violation.
	KindOperationNotValid Kind = "OperationNotValid"
	// KindStore marks an object-store failure not attributable to caller input.
	KindStore Kind = "StoreError"
	// KindRepository marks a database failure not attributable to caller input.
	KindRepository Kind = "RepositoryError"
)

// Error is a tagged failure with a structured context record.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// With attaches a context key/value pair and returns the error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// KindOf reports the kind of err, or KindStore when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindOperationNotValid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Response is the wire shape of a surfaced failure.
type Response struct {
	Name    string            `json:"name"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// ToResponse converts err into its structured response body. Server-side
// kinds hide the underlying message from the caller.
func ToResponse(err error) Response {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return Response{Name: string(KindStore), Message: "internal error"}
	}

	resp := Response{Name: string(appErr.Kind), Context: appErr.Context}
	switch appErr.Kind {
	case KindStore, KindRepository:
		resp.Message = "internal error"
	default:
		resp.Message = appErr.Message
	}
	return resp
}
