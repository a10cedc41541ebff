package sessionstore

import (
	"errors"
	"fmt"
)

// Error is a coded store error. Two Errors match under errors.Is when their
// codes are equal, so sentinels can be compared after WithDetails/WithCause.
type Error struct {
	Code    string // e.g. "GS-STORE-5030"
	Message string
	Details string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(format string, args ...any) *Error {
	cp := *e
	cp.Details = fmt.Sprintf(format, args...)
	return &cp
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// ErrorCode returns the code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

var (
	// ErrNotConstructed is returned by every method of a Store that was not
	// obtained from New.
	ErrNotConstructed = &Error{Code: "GS-STORE-5000", Message: "store must be created with sessionstore.New"}

	// ErrNotInitialized is returned by data operations before a grid client
	// has been attached.
	ErrNotInitialized = &Error{Code: "GS-STORE-5030", Message: "no grid client attached"}

	// ErrInvalidConfig is returned by New for unusable configurations.
	ErrInvalidConfig = &Error{Code: "GS-STORE-4000", Message: "invalid store configuration"}

	// ErrMapIndex is returned by GetFromMap for an index outside the
	// configured maps.
	ErrMapIndex = &Error{Code: "GS-STORE-4040", Message: "map index out of range"}

	// ErrCodec wraps value encoding and decoding failures.
	ErrCodec = &Error{Code: "GS-STORE-5001", Message: "value codec failure"}
)
