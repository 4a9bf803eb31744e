package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
)

// Error is a classified failure carrying a standardized code
type Error struct {
	Code    ErrorCode
	Message string
	Details []string
	Row     int
	Err     error
}

// ErrorOption is a functional option for configuring errors
type ErrorOption func(*Error)

// WithDetails adds detail messages to the error
func WithDetails(details ...string) ErrorOption {
	return func(e *Error) {
		e.Details = append(e.Details, details...)
	}
}

// WithMessage overrides the default message for the error code
func WithMessage(message string) ErrorOption {
	return func(e *Error) {
		e.Message = message
	}
}

// WithCause records the underlying error
func WithCause(err error) ErrorOption {
	return func(e *Error) {
		e.Err = err
	}
}

// WithRow records the 1-based data row the error refers to
func WithRow(row int) ErrorOption {
	return func(e *Error) {
		e.Row = row
	}
}

// New creates a classified error with the given code
// Optional details can be added using functional options
func New(code ErrorCode, opts ...ErrorOption) *Error {
	e := &Error{
		Code:    code,
		Message: GetErrorMessage(code),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Wrap classifies err under code, keeping it as the cause
func Wrap(code ErrorCode, err error, opts ...ErrorOption) *Error {
	return New(code, append([]ErrorOption{WithCause(err)}, opts...)...)
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !goerrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Kind returns the failure scope of the error
func (e *Error) Kind() Kind {
	return GetKind(e.Code)
}

// CodeOf extracts the error code from anywhere in err's chain
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if goerrors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// KindOf classifies err by scope, KindUnknown when it carries no code
func KindOf(err error) Kind {
	code, ok := CodeOf(err)
	if !ok {
		return KindUnknown
	}
	return GetKind(code)
}

// IsKind reports whether err belongs to the given scope
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
