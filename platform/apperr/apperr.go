// Package apperr provides the typed errors domain code returns. httpkit maps
// each Kind to an HTTP status; everything else only looks at the Kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the addressed resource does not exist.
	KindNotFound
	// KindValidation: input failed a field-level check.
	KindValidation
	// KindBadRequest: the request itself is malformed.
	KindBadRequest
	// KindConflict: the request collides with existing state, e.g. a duplicate.
	KindConflict
	// KindUnprocessable: a well-formed request refused by a business rule.
	KindUnprocessable
	// KindUnauthorized: no or invalid credentials.
	KindUnauthorized
	// KindForbidden: credentials are valid but lack permission.
	KindForbidden
	// KindInternal: an unexpected failure; the message is not meant for users.
	KindInternal
)

var kindMeta = map[Kind]struct {
	name   string
	status int
}{
	KindUnknown:       {"unknown", http.StatusBadRequest},
	KindNotFound:      {"not_found", http.StatusNotFound},
	KindValidation:    {"validation", http.StatusBadRequest},
	KindBadRequest:    {"bad_request", http.StatusBadRequest},
	KindConflict:      {"conflict", http.StatusConflict},
	KindUnprocessable: {"unprocessable", http.StatusUnprocessableEntity},
	KindUnauthorized:  {"unauthorized", http.StatusUnauthorized},
	KindForbidden:     {"forbidden", http.StatusForbidden},
	KindInternal:      {"internal", http.StatusInternalServerError},
}

// String returns the snake_case name of k, used in logs.
func (k Kind) String() string {
	if m, ok := kindMeta[k]; ok {
		return m.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain error with a Kind, a user-facing message and optional
// structured details for the response body.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code for e's Kind.
func (e *Error) HTTPStatus() int {
	if m, ok := kindMeta[e.Kind]; ok {
		return m.status
	}
	return http.StatusBadRequest
}

// WithOp sets the failing operation and returns e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches response details and returns e.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// New creates an error of kind with message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of kind with message that unwraps to err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Validation(message string) *Error    { return New(KindValidation, message) }
func BadRequest(message string) *Error    { return New(KindBadRequest, message) }
func Conflict(message string) *Error      { return New(KindConflict, message) }
func Unprocessable(message string) *Error { return New(KindUnprocessable, message) }
func Internal(message string) *Error      { return New(KindInternal, message) }

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries an *Error of kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
