// Package errors defines the error kinds surfaced by the repository core.
package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeCorrupt    ErrorType = "CORRUPT"
	ErrorTypeIO         ErrorType = "IO"
	ErrorTypeNoMatch    ErrorType = "NO_MATCH"
)

type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(message string) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message}
}

func ValidationError(message string) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message}
}

// Corrupt reports on-disk state that failed an integrity check. It is never
// retried or repaired.
func Corrupt(message string, err error) *Error {
	return &Error{Type: ErrorTypeCorrupt, Message: message, Err: err}
}

func IO(message string, err error) *Error {
	return &Error{Type: ErrorTypeIO, Message: message, Err: err}
}

// NoMatch is returned when a user supplied path resolves to no files.
func NoMatch(path string) *Error {
	return &Error{
		Type:    ErrorTypeNoMatch,
		Message: fmt.Sprintf("pathspec %q did not match any files", path),
	}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == t
}
