package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutsideSpace indicates a document id resolved to an object that is not
	// contained in the caller's space.
	ErrOutsideSpace = errors.New("document outside space")

	// ErrPayloadTooLarge indicates a stored payload exceeded the read limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrLLMUnavailable indicates the generation provider is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrRateLimited indicates a rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates a concurrent writer changed a document between read and write.
	ErrConflict = errors.New("concurrent modification")
)

// ErrorKind is the fixed taxonomy every failure is mapped onto before it
// leaves the core.
type ErrorKind string

// Error kinds.
const (
	KindUpstreamTimeout ErrorKind = "upstream_timeout"
	KindRateLimited     ErrorKind = "rate_limited"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindUpstreamError   ErrorKind = "upstream_error"
	KindBadOutput       ErrorKind = "bad_output"
	KindNotConfigured   ErrorKind = "not_configured"
)

// Status returns the HTTP status a surrounding request layer should surface.
func (k ErrorKind) Status() int {
	switch k {
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUpstreamError, KindBadOutput:
		return http.StatusBadGateway
	case KindNotConfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// String returns the wire code.
func (k ErrorKind) String() string {
	return string(k)
}

// Error is the single error type carried out of the core.
type Error struct {
	// Kind is the taxonomy code.
	Kind ErrorKind

	// Op names the operation that failed (e.g. "store.getContent").
	Op string

	// Message is a human-readable description.
	Message string

	// Details carries structured context such as offending ids or retryAfterMs.
	Details map[string]any

	// UpstreamStatus is the raw status reported by a collaborator, if any.
	UpstreamStatus int

	// Err is the underlying cause.
	Err error
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WithDetail attaches a detail key and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// KindOf returns the kind of err, or "" if err is not a *Error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// InvalidRequest builds an invalid_request error listing offending fields or ids.
func InvalidRequest(op, message string, offending []string) *Error {
	e := NewError(KindInvalidRequest, op, message)
	e.Err = ErrInvalidInput
	if len(offending) > 0 {
		e.WithDetail("offending", offending)
	}
	return e
}

// ParseError reports a payload that could not be decoded into a typed document.
type ParseError struct {
	// DocType names the document type being decoded (e.g. "artifact").
	DocType string

	// Reason describes what was wrong.
	Reason string

	// Err is the underlying decoder error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.DocType, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.DocType, e.Reason)
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
