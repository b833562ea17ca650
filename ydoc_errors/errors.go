// Provides the error taxonomy surfaced by ydoc documents.
//
// Every fallible operation reports exactly one of DecodeError,
// UnsupportedOperationError, ConcurrentAccessError or OutOfBoundsError.
// Each typed error matches its sentinel with errors.Is, so callers can
// branch on the cause without errors.As.
package ydoc_errors

import (
	"errors"
	"fmt"
)

var (
	ErrDecode           = errors.New("ydoc: cannot decode")
	ErrUnsupported      = errors.New("ydoc: unsupported operation")
	ErrConcurrentAccess = errors.New("ydoc: concurrent transaction")
	ErrOutOfBounds      = errors.New("ydoc: index out of bounds")
)

// DecodeError reports malformed binary input: updates, state vectors
// and snapshots received from the outside.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ydoc: cannot decode %s: %s", e.Reason, e.Err.Error())
	}
	return "ydoc: cannot decode " + e.Reason
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode wraps a low-level parse failure of the named payload.
func Decode(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

// UnsupportedOperationError reports a capability the document does not
// have, e.g. snapshot-scoped encoding on a garbage collected document.
type UnsupportedOperationError struct {
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return "ydoc: unsupported operation: " + e.Reason
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }

func Unsupported(format string, args ...any) error {
	return &UnsupportedOperationError{Reason: fmt.Sprintf(format, args...)}
}

// ConcurrentAccessError reports a transaction that could not start
// because a conflicting one is active on the same document.
type ConcurrentAccessError struct {
	Requested string // "read-write" or "read-only"
	Active    string // what holds the document
}

func (e *ConcurrentAccessError) Error() string {
	return fmt.Sprintf("ydoc: cannot start %s transaction: %s transaction is active", e.Requested, e.Active)
}

func (e *ConcurrentAccessError) Is(target error) bool { return target == ErrConcurrentAccess }

// OutOfBoundsError reports an index or range past the end of a
// container. Positions are never clamped.
type OutOfBoundsError struct {
	Index  uint32
	Length uint32
	Bound  uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("ydoc: range [%d, %d+%d) is out of bounds (length %d)", e.Index, e.Index, e.Length, e.Bound)
}

func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

func OutOfBounds(index, length, bound uint32) error {
	return &OutOfBoundsError{Index: index, Length: length, Bound: bound}
}
