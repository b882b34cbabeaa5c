// Package apperr defines the error taxonomy the whole backend speaks:
// validation failures, permission denials, missing rows and integrity
// failures. Handlers map these to HTTP statuses in one place; everything
// below the handlers returns them as plain Go errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	// KindValidation covers malformed input, cross-clinic reference
	// mismatches, uniqueness violations and missing required fields.
	KindValidation Kind = iota + 1

	// KindPermissionDenied means the permission policy said no. Never
	// downgraded to a partial result.
	KindPermissionDenied

	// KindNotFound means the row is not in the caller's scoped view.
	// Absent, soft-deleted and other-clinic rows all produce this same
	// error so callers cannot probe what exists elsewhere.
	KindNotFound

	// KindIntegrity marks a failed compound write (e.g. the profile
	// insert inside patient creation). The enclosing transaction rolls
	// back; the caller sees one generic failure, never a partial state.
	KindIntegrity
)

// Error is the typed failure every layer below the handlers returns.
// Fields holds field-level detail for validation errors.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// Validation builds a field-level validation error.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// ValidationField is the common single-field case.
func ValidationField(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// PermissionDenied builds a denial with the given reason.
func PermissionDenied(reason string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: reason}
}

// NotFound builds the uniform not-found error for a resource name.
// Callers must not vary the message by cause.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Integrity wraps a storage error from a failed compound write.
func Integrity(message string, err error) *Error {
	return &Error{Kind: KindIntegrity, Message: message, err: err}
}

// KindOf extracts the Kind from err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// HTTPStatus maps an error to the status code the API responds with.
// Unknown errors are internal failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindIntegrity:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
