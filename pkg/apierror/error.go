package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies an error by its origin and handling policy.
type Kind int

const (
	// KindAPI is a backend-reported domain error (carries code and HTTP status).
	KindAPI Kind = iota

	// KindTransport is a connectivity, timeout, or decode failure below the
	// API layer. HTTPStatus is always 0.
	KindTransport

	// KindInvalidToken is a malformed token or a missing required claim.
	// Never retried.
	KindInvalidToken

	// KindAuthenticationFailed means the backend rejected the credentials.
	KindAuthenticationFailed

	// KindRefreshFailed means the backend token refresh failed; the caller
	// must re-authenticate.
	KindRefreshFailed

	// KindNotAuthenticated means an operation requiring a session was
	// attempted with none present.
	KindNotAuthenticated
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindTransport:
		return "transport"
	case KindInvalidToken:
		return "invalid_token"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindRefreshFailed:
		return "refresh_failed"
	case KindNotAuthenticated:
		return "not_authenticated"
	default:
		return "unknown"
	}
}

// Error is the SDK-wide error value.
//
// Backend errors carry the wire Code and HTTPStatus from the error
// envelope. Client-synthesized errors (transport faults, validation
// failures) use HTTPStatus 0 or a synthesized 401-class status.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Code is the backend domain error code (0 for client-side errors).
	Code int

	// Message is a human-readable description.
	Message string

	// HTTPStatus is the HTTP status of the failing response, or 0 for
	// transport-level faults.
	HTTPStatus int

	// Details carries additional structured fields from the error envelope.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("[%s] %s (code=%d, status=%d)", e.Kind, e.Message, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support. Two errors match when their kinds match
// and, for backend errors, their codes match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if t.Code != 0 && e.Code != t.Code {
		return false
	}
	return true
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithDetails returns a copy of the error with the given details map.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// New creates a backend API error from an error envelope.
func New(code int, message string, httpStatus int) *Error {
	return &Error{
		Kind:       classify(httpStatus),
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NewTransport wraps a network, timeout, or decode failure. The resulting
// error carries HTTPStatus 0 and a synthetic message so callers handle it
// through the same taxonomy as backend errors.
func NewTransport(message string, cause error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidToken reports a structurally invalid token.
func NewInvalidToken(message string) *Error {
	return &Error{
		Kind:    KindInvalidToken,
		Message: message,
	}
}

// NewAuthenticationFailed synthesizes a 401-class authentication error for
// failures with no backend error attached.
func NewAuthenticationFailed(message string, cause error) *Error {
	return &Error{
		Kind:       KindAuthenticationFailed,
		Message:    message,
		HTTPStatus: 401,
		Cause:      cause,
	}
}

// NewRefreshFailed reports a failed backend token refresh.
func NewRefreshFailed(message string, cause error) *Error {
	return &Error{
		Kind:    KindRefreshFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewNotAuthenticated reports an operation attempted without a session.
func NewNotAuthenticated(message string) *Error {
	return &Error{
		Kind:    KindNotAuthenticated,
		Message: message,
	}
}

// classify maps a backend error's HTTP status onto a kind. Authentication
// rejections are distinguished so the session manager can transition its
// state machine; everything else stays a plain API error and retryability
// is decided by the client's retry policy.
func classify(httpStatus int) Kind {
	if httpStatus == 401 {
		return KindAuthenticationFailed
	}
	return KindAPI
}

// From extracts an *Error from err, or wraps err as a transport fault when
// it is some other error type.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return NewTransport(err.Error(), err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
