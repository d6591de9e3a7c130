package exchange

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so transports can map it to a response.
type Kind string

const (
	KindUnauthenticated        Kind = "unauthenticated"
	KindForbidden              Kind = "forbidden"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindDuplicateRequest       Kind = "duplicate_request"
	KindNotFound               Kind = "not_found"
	KindInvalid                Kind = "invalid"
)

// Error is a domain error returned by the engine.
type Error struct {
	Kind    Kind
	Message string

	// ExistingRequestID is set for KindDuplicateRequest.
	ExistingRequestID string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExistingRequestID returns the ID carried by a duplicate request error.
func ExistingRequestID(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.ExistingRequestID
	}
	return ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func errUnauthenticated() error {
	return newError(KindUnauthenticated, "authentication required")
}

func errForbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func errNotFound(what string) error {
	return newError(KindNotFound, "%s not found", what)
}

func errInvalid(format string, args ...any) error {
	return newError(KindInvalid, format, args...)
}

func errDuplicate(existingID string) error {
	e := newError(KindDuplicateRequest, "an active request for this item already exists")
	e.ExistingRequestID = existingID
	return e
}

func errConcurrent() error {
	return newError(KindInvalidStateTransition, "request was changed by another action, reload and retry")
}
