package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindUpstream        ErrorKind = "upstream_failure"
	KindUnexpected      ErrorKind = "unexpected"
)

// Error is the error type returned across service boundaries. Message is
// safe to show to the caller; Err carries the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "Not authenticated"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "Not authorized"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "Not found"}
	ErrInvalidRequest  = &Error{Kind: KindInvalidRequest, Message: "Invalid request"}
	ErrUpstream        = &Error{Kind: KindUpstream, Message: "Face analysis failed"}
	ErrUnexpected      = &Error{Kind: KindUnexpected, Message: "An unexpected error occurred"}
)

func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func InvalidRequest(msg string) error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func Unexpected(err error) error {
	return &Error{Kind: KindUnexpected, Message: ErrUnexpected.Message, Err: err}
}

// KindOf returns the kind of err, treating anything that is not a *Error as
// unexpected.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return ErrUnexpected.Message
}
