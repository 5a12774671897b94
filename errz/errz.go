// Package errz defines the error kinds reported by the assembler.
//
// Every error produced while building or writing a class is fatal: the caller
// gets either a complete class file or an *Error, never partial output. The
// kind says who is at fault:
//
//   - Precondition: the caller declared something invalid (empty names,
//     out-of-range literals, too many locals). Reported when a declaration closes.
//   - Invariant: the assembler itself is inconsistent, e.g. an instruction
//     references a symbol that was never interned.
//   - Overflow: a count, index or length does not fit its fixed-width field.
//
// Kinds are errors themselves, so callers can test with errors.Is:
//
//	if errors.Is(err, errz.Precondition) { ... }
package errz

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// Precondition indicates caller misuse of the builder.
	Precondition ErrorKind = iota + 1
	// Invariant indicates an internal inconsistency in the assembler.
	Invariant
	// Overflow indicates a value too large for its class-file field.
	Overflow
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case Precondition:
		return "precondition violated"
	case Invariant:
		return "internal invariant violated"
	case Overflow:
		return "overflow"
	default:
		return "error"
	}
}

// Error lets a kind be used as an errors.Is target.
func (k ErrorKind) Error() string {
	return k.String()
}

// Error is a fatal assembler error.
type Error struct {
	Kind ErrorKind
	Op   string // Operation that failed, e.g. "pool.Lookup"
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// IsFatal always returns true. Assembler errors are never retried.
func (e *Error) IsFatal() bool {
	return true
}

// New wraps err with a kind and operation name.
func New(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Preconditionf creates a Precondition error with a formatted message.
func Preconditionf(op, format string, args ...any) *Error {
	return New(Precondition, op, fmt.Errorf(format, args...))
}

// Invariantf creates an Invariant error with a formatted message.
func Invariantf(op, format string, args ...any) *Error {
	return New(Invariant, op, fmt.Errorf(format, args...))
}

// Overflowf creates an Overflow error with a formatted message.
func Overflowf(op, format string, args ...any) *Error {
	return New(Overflow, op, fmt.Errorf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
