// Package apperr defines the error kinds surfaced by the core services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it.
type Kind string

const (
	KindInternal            Kind = "internal"
	KindNotFound            Kind = "not_found"
	KindValidation          Kind = "validation"
	KindProviderUnavailable Kind = "provider_unavailable"
)

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports that a requested record does not exist.
func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, fmt.Errorf(format, args...))
}

// Validation reports caller misuse such as a bad multiplier or a malformed date.
func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, fmt.Errorf(format, args...))
}

// Unavailable reports that an external provider could not serve the request.
func Unavailable(op string, err error) *Error {
	return New(KindProviderUnavailable, op, err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
