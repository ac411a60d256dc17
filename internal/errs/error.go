// Package errs implements the uniform error representation used across
// botticelli: a single struct carrying an error kind, a message, and the
// source location it was constructed at, rather than one Go type per kind.
// This keeps errors.Is/errors.As and kind-based dispatch both usable from
// the same value.
package errs

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies an Error. Kinds are not Go types so a caller can both
// errors.As into *Error and switch on Kind() for routing.
type Kind string

const (
	Configuration Kind = "configuration"
	Parse         Kind = "parse"
	Provider      Kind = "provider"
	RateLimit     Kind = "rate_limit"
	Storage       Kind = "storage"
	Processor     Kind = "processor"
	Schedule      Kind = "schedule"
	Actor         Kind = "actor"
	Cancelled     Kind = "cancelled"
)

// Error is botticelli's uniform error value: a kind, a one-line message, an
// optional wrapped cause, and the source location captured at construction.
type Error struct {
	kind    Kind
	message string
	cause   error
	file    string
	line    int
}

// New builds an Error of the given kind, capturing the caller's location.
func New(kind Kind, message string) *Error {
	return newAt(kind, message, nil, 2)
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return newAt(kind, fmt.Sprintf(format, args...), nil, 2)
}

// Wrap builds an Error of the given kind that wraps cause, capturing the
// caller's location. The cause keeps its own location, reachable through
// Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return newAt(kind, message, cause, 2)
}

func newAt(kind Kind, message string, cause error, skip int) *Error {
	file, line := "", 0
	if _, f, l, ok := runtime.Caller(skip); ok {
		file, line = f, l
	}
	return &Error{kind: kind, message: message, cause: cause, file: file, line: line}
}

// Kind reports the error's kind.
func (e *Error) Kind() Kind { return e.kind }

// Location reports the file and line captured at construction.
func (e *Error) Location() (file string, line int) { return e.file, e.line }

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	loc := fmt.Sprintf("%s:%d", shortFile(e.file), e.line)
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.kind, e.message, e.cause.Error(), loc)
	}
	return fmt.Sprintf("[%s] %s (%s)", e.kind, e.message, loc)
}

func (e *Error) Unwrap() error { return e.cause }

// Is supports errors.Is(err, kindSentinel) by comparing kinds whenever
// target is itself an *Error; its message and location are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind
}

func shortFile(path string) string {
	depth := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			depth++
			if depth == 2 {
				return path[i+1:]
			}
		}
	}
	return path
}

// Sentinel builds a bare Error carrying only a kind, suitable for use with
// errors.Is as a comparison target: errors.Is(err, errs.Sentinel(errs.RateLimit)).
func Sentinel(kind Kind) *Error { return &Error{kind: kind} }

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and ok=true.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}
