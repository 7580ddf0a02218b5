package session

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure for callers. Per-line parse
// problems inside multi-record files never surface here; they are
// recovered locally and reported as warnings.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindParseFailed      Kind = "parse_failed"
	KindInvalidHandoff   Kind = "invalid_handoff"
	KindUnsupportedAgent Kind = "unsupported_agent"
	KindUnsupportedMode  Kind = "unsupported_mode"
	KindIO               Kind = "io_error"
	KindEmptySession     Kind = "empty_session"
)

// Error is a typed pipeline error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a typed error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr attaches a cause to a typed error.
func WrapErr(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain. Untyped errors
// classify as IO failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}
