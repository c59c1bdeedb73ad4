// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode defines supported error codes used across the engine
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for recovered panics
	ErrorCodePanic

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeConfig is for malformed country/format configuration; fatal at startup
	ErrorCodeConfig

	// ErrorCodeDecode is for degenerate probability input on a single image
	ErrorCodeDecode

	// ErrorCodeNoValidFormat is the normal negative outcome when no plate format
	// matches within the substitution bound
	ErrorCodeNoValidFormat

	// ErrorCodeRecognizer is for whole-batch failures of the injected recognizer
	ErrorCodeRecognizer

	// ErrorCodeQueueFull is for submit-time backpressure when the request queue is full
	ErrorCodeQueueFull
)

// ErrNoValidFormat is a sentinel for the no-match outcome for convenience
var ErrNoValidFormat = New(ErrorCodeNoValidFormat, "no valid plate format")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// op is an optional operation tag; orig is the wrapped cause
type Error struct {
	orig error
	msg  string
	code ErrorCode
	op   string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// Configf returns a configuration error
func Configf(format string, a ...any) error { return Newf(ErrorCodeConfig, format, a...) }

// Decodef returns a decode failure error
func Decodef(format string, a ...any) error { return Newf(ErrorCodeDecode, format, a...) }

// NoValidFormatf returns a no-valid-format outcome
func NoValidFormatf(format string, a ...any) error { return Newf(ErrorCodeNoValidFormat, format, a...) }

// Recognizerf returns a recognizer failure error
func Recognizerf(format string, a ...any) error { return Newf(ErrorCodeRecognizer, format, a...) }

// QueueFullf returns a queue-full backpressure error
func QueueFullf(format string, a ...any) error { return Newf(ErrorCodeQueueFull, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// Retry semantics

// Retryable reports whether the error is worth retrying. Recognizer and
// queue-full failures are transient; everything else is not
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrorCodeRecognizer, ErrorCodeQueueFull:
		return true
	default:
		return false
	}
}
