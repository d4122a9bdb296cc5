// Package rterr defines the structured error taxonomy shared across the
// runtime's packages: state-protocol errors, wrapped system errors,
// invalid-argument rejections, and fatal invariant violations.
package rterr

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/ringrt/ringrt/internal/logging"
)

// ErrorCode categorizes a failure into one of the four kinds the runtime
// surfaces to callers.
type ErrorCode string

const (
	// CodeStateProtocol covers NotReady/AlreadyRetrieved/AlreadySatisfied/
	// BrokenPromise — programming mistakes against the state-cell protocol,
	// never retried.
	CodeStateProtocol ErrorCode = "state protocol"
	// CodeSystem wraps a negative syscall return.
	CodeSystem ErrorCode = "system"
	// CodeInvalidArgument is a synchronous rejection of an ill-formed call.
	CodeInvalidArgument ErrorCode = "invalid argument"
	// CodeFatal marks an unrecoverable violation of an engine invariant.
	CodeFatal ErrorCode = "fatal"
)

// Error is the runtime's structured error type: an operation name, a
// taxonomy code, an optional wrapped errno, and a message.
type Error struct {
	Op    string
	Code  ErrorCode
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op == "" {
		return fmt.Sprintf("ringrt: %s", msg)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("ringrt: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("ringrt: %s: %s", e.Op, msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is compares by taxonomy code and message so callers can write
// errors.Is(err, rterr.ErrNotReady) without caring about Op/Errno; the
// message is what tells the four state-protocol sentinels apart.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code && e.Msg == te.Msg
}

// State-protocol sentinels (spec §7, kind 1).
var (
	ErrNotReady         = &Error{Code: CodeStateProtocol, Msg: "not ready"}
	ErrAlreadyRetrieved = &Error{Code: CodeStateProtocol, Msg: "already retrieved"}
	ErrAlreadySatisfied = &Error{Code: CodeStateProtocol, Msg: "already satisfied"}
	ErrBrokenPromise    = &Error{Code: CodeStateProtocol, Msg: "broken promise"}
)

// NewError builds a plain structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewSystemError wraps a negative syscall result.
func NewSystemError(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: CodeSystem, Errno: errno, Msg: errno.Error()}
}

// NewInvalidArgument rejects a synchronously ill-formed call.
func NewInvalidArgument(op string, msg string) *Error {
	return &Error{Op: op, Code: CodeInvalidArgument, Msg: msg}
}

// WrapError annotates an arbitrary error with an operation name. An *Error
// keeps its own code, errno and message; a syscall.Errno maps to
// CodeSystem; anything else becomes CodeSystem with the original message.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if re, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: re.Code, Errno: re.Errno, Msg: re.Msg, Inner: re.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: CodeSystem, Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: CodeSystem, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err (or something it wraps) carries the given
// taxonomy code.
func IsCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// Fatal logs a diagnostic line through the default logger and panics,
// implementing §7 kind 4 (double reactor construction, ref-count
// underflow, exhausted submission ring, broken in-flight accounting).
func Fatal(op string, msg string) {
	logging.Default().Error("fatal runtime invariant violated", "op", op, "msg", msg)
	panic(&Error{Op: op, Code: CodeFatal, Msg: msg})
}
