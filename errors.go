package ecshim

import (
	"errors"
	"fmt"
)

// Code represents a high-level error category originating in the shim.
type Code string

const (
	// CodeOutOfMemory means a record or the zero-buffer scratch could
	// not be allocated.
	CodeOutOfMemory Code = "out of memory"

	// CodeInvalidConfig means the shim was asked to operate with an
	// invalid configuration, notably BlockSize == 0 on write.
	CodeInvalidConfig Code = "invalid configuration"

	// CodeBackend means the inner store returned an error, which is
	// forwarded unchanged (possibly wrapped with shim context).
	CodeBackend Code = "backend error"
)

// Error is a structured shim error with a block number (when applicable),
// an error category, and an optionally wrapped cause.
type Error struct {
	Op       string // operation that failed, e.g. "write_block"
	BlockNum uint64 // block number, valid when HasBlockNum is true
	HasBlockNum bool
	Code     Code
	Msg      string
	Inner    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.HasBlockNum {
		return fmt.Sprintf("ecshim: %s: %s (block=%d)", e.Op, msg, e.BlockNum)
	}
	return fmt.Sprintf("ecshim: %s: %s", e.Op, msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is a *Error with the same Code.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError creates a new structured error not tied to a specific block.
func NewError(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewBlockError creates a new structured error tied to a block number.
func NewBlockError(op string, blockNum uint64, code Code, msg string) *Error {
	return &Error{Op: op, BlockNum: blockNum, HasBlockNum: true, Code: code, Msg: msg}
}

// WrapError wraps an existing error with shim operation context, forwarding
// it otherwise unchanged (per §7: "Backend error... forwarded unchanged").
// A nil inner error yields a nil *Error.
func WrapError(op string, blockNum uint64, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ee, ok := inner.(*Error); ok {
		return &Error{Op: op, BlockNum: ee.BlockNum, HasBlockNum: ee.HasBlockNum, Code: ee.Code, Msg: ee.Msg, Inner: ee.Inner}
	}
	return &Error{Op: op, BlockNum: blockNum, HasBlockNum: true, Code: CodeBackend, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is, or wraps, a *Error with the given code.
func IsCode(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// ErrFingerprintMismatch is returned (or wrapped) by a Store implementation
// when the content it retrieved does not match the expected fingerprint it
// was asked to verify against.
var ErrFingerprintMismatch = errors.New("ecshim: fingerprint mismatch")

// ErrClosed is returned by shim operations issued after Close.
var ErrClosed = errors.New("ecshim: shim closed")
