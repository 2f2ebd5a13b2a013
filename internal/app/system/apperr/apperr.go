// Package apperr defines the application error taxonomy and its mapping
// to HTTP status codes. Validation failures (AuthRequired, InvalidInput,
// Forbidden, InvalidState) are returned synchronously for form-level
// display; remote read failures degrade into the local-fallback path and
// are logged rather than surfaced; remote write failures surface once
// and are never retried automatically.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// Unknown is an uncategorized remote failure; the message echoes
	// the underlying detail.
	Unknown Kind = iota

	// AuthRequired means the action needs a non-anonymous identity.
	AuthRequired

	// InvalidInput covers malformed invite codes and empty required
	// fields.
	InvalidInput

	// InvalidInvite means the invite code was not found.
	InvalidInvite

	// Expired means the invite code is past its redemption window.
	Expired

	// NotFound means the referenced document does not exist.
	NotFound

	// Forbidden means a non-admin attempted an admin-only mutation.
	Forbidden

	// PermissionDenied means the remote store rejected a read/write
	// for access reasons.
	PermissionDenied

	// InvalidState means the operation would violate an invariant,
	// such as emptying a profile's membership set.
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case AuthRequired:
		return "auth_required"
	case InvalidInput:
		return "invalid_input"
	case InvalidInvite:
		return "invalid_invite"
	case Expired:
		return "expired"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case PermissionDenied:
		return "permission_denied"
	case InvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

// Error is a classified application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperr errors by Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a classified error with a user-facing message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "an unexpected error occurred"
}

// HTTPStatus maps an error to the status code rendered by the JSON
// error layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case AuthRequired:
		return http.StatusUnauthorized
	case InvalidInput:
		return http.StatusBadRequest
	case InvalidInvite, NotFound:
		return http.StatusNotFound
	case Expired:
		return http.StatusGone
	case Forbidden, PermissionDenied:
		return http.StatusForbidden
	case InvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
