// Package serrors attaches a semantic kind to errors so that callers far from
// the failure (the API, the job workers, the fail-open policy) can react to
// what went wrong without knowing where.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a semantic error category. Kinds are sentinels: compare them with
// errors.Is or extract them with KindOf.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a kind. name is also the code reported by the API.
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrNotFound reports a missing tab, block or resource.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrBadRequest reports a malformed message or request.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrConflict reports a state conflict.
	ErrConflict = NewKind("CONFLICT")
	// ErrInternal reports a bug or an unexpected local failure.
	ErrInternal = NewKind("INTERNAL")
	// ErrTimeout reports an operation that ran out of time.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrUnavailable reports a dependency that could not be reached.
	ErrUnavailable = NewKind("UNAVAILABLE")
	// ErrRateLimited reports a refused call because of a rate limit, ours or
	// the backend's.
	ErrRateLimited = NewKind("RATE_LIMITED")
	// ErrUpstream reports a dependency that answered with an unusable
	// response: a non-2xx status or a payload breaking its contract.
	ErrUpstream = NewKind("UPSTREAM")
)

// KindOf returns the first kind found in err's chain, or nil.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.kind != nil {
		return e.kind
	}

	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return nil
}

// Transient reports whether retrying the failed operation later may succeed.
// Errors without a kind are treated as transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	switch KindOf(err) {
	case ErrNotFound, ErrBadRequest, ErrConflict:
		return false
	default:
		return true
	}
}

// Error carries a kind, an optional cause and an optional message.
// errors.Is and errors.As match both the kind and the cause chain.
//
// The message is rendered as "<msg>: <cause>", falling back to whichever of
// the two is set and finally to the kind's name.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With returns an error of kind k with a formatted message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap returns an error of kind k wrapping err, with a formatted message.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly returns a bare error of kind k.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	switch {
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}

	return (e.kind != nil && errors.Is(e.kind, target)) ||
		(e.err != nil && errors.Is(e.err, target))
}

func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}

	return (e.kind != nil && errors.As(e.kind, target)) ||
		(e.err != nil && errors.As(e.err, target))
}

// Kind returns the kind of e, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to e.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped error, or nil.
func (e *Error) Cause() error { return e.err }
