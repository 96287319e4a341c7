package store

import (
	"errors"
	"fmt"
)

// Kind tags the typed error kinds spec.md §7 assigns to the store:
// StoreClosed, InvalidArgument, InvalidVersion, SelectionConflict and
// DriverFailure.
type Kind int

const (
	// DriverFailure wraps an unexpected underlying store error.
	DriverFailure Kind = iota
	// StoreClosed is returned by any operation attempted after Close.
	StoreClosed
	// InvalidArgument covers a malformed coordinate, the wrong concrete
	// Path type, or an unsupported query form (e.g. a caller passing a
	// START clause to an extension query).
	InvalidArgument
	// InvalidVersion is returned when a coordinate is rejected during
	// node creation; per spec.md §7 the containing batch continues with
	// the failing edge dropped.
	InvalidVersion
	// SelectionConflict is returned when a synthesized selection edge
	// would introduce a cycle; edge creation fails and the caller
	// receives the rejection.
	SelectionConflict
)

func (k Kind) String() string {
	switch k {
	case DriverFailure:
		return "DriverFailure"
	case StoreClosed:
		return "StoreClosed"
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidVersion:
		return "InvalidVersion"
	case SelectionConflict:
		return "SelectionConflict"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type every Store method returns on
// failure, grounded on internal/mod/mvs.BuildListError's style: a
// concrete struct implementing error, wrapping an optional cause,
// inspectable with errors.As rather than string-matching.
type Error struct {
	Kind Kind
	Op   string // the Store method that failed, e.g. "CreateNode"
	Err  error  // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a *Error of the given kind for op, wrapping cause
// (which may be nil).
func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err is a *Error of kind, matching the shallow style
// cue/errors.Is uses over the standard library's errors.Is.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As is a thin wrapper over the standard library's errors.As for *Error,
// mirroring cue/errors' convenience re-exports.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
