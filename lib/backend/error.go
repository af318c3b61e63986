package backend

import (
	"context"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

type Kind uint8

const (
	KindInvalidInput Kind = iota + 1 // 1: Malformed request, rejected before any backend call.
	KindTimeout                      // 2: Backend call exceeded its deadline.
	KindRateLimited                  // 3: Backend signaled throttling.
	KindBackendError                 // 4: Any other backend or transport failure.
	KindCustom                       // 5: Internal invariant violated (e.g. unexpected cardinality).
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindTimeout:
		return "Timeout"
	case KindRateLimited:
		return "RateLimited"
	case KindBackendError:
		return "BackendError"
	case KindCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// ErrLimitExceeded is wrapped by backend clients when the backend reports throttling
var ErrLimitExceeded = errors.New("limit exceeded")

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the classified error returned by every proxy operation.
// Msg carries the detail used for logging, Err the original cause (if any).
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the original cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given kind and message.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// InvalidInput creates an InvalidInput error
func InvalidInput(msg string) *Error {
	return NewError(KindInvalidInput, msg)
}

// Custom creates an error for a violated protocol invariant
func Custom(msg string) *Error {
	return NewError(KindCustom, msg)
}

// KindOf returns the kind of err, or 0 if err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Classify converts any error returned by a backend client into an *Error.
// nil stays nil and errors that are already classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Msg: "backend timeout", Err: err}
	case errors.Is(err, ErrLimitExceeded):
		return &Error{Kind: KindRateLimited, Msg: err.Error(), Err: err}
	default:
		return &Error{Kind: KindBackendError, Msg: err.Error(), Err: err}
	}
}
