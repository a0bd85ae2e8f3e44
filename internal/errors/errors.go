// Package errors provides structured error types for composer-yaml.
//
// Every failure the reconciler can surface carries a machine-readable
// [Code] so callers (and tests) can tell a malformed manifest from a write
// that kept failing after retries:
//
//   - PARSE_ERROR: a manifest is not well-formed YAML or JSON
//   - READ_ERROR: a manifest could not be read from disk or fetched
//   - DIRECTORY_ERROR: the target directory conflicts with a file or cannot be created
//   - WRITE_ERROR: a write still failed after the retry budget was spent
//   - CONFIGURATION_ERROR: invalid settings, detected eagerly at construction
//   - INVALID_MANIFEST: the decoded manifest has the wrong shape
//   - EMPTY_MANIFEST: a manifest has no content to convert
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeParse, cause, "parsing %s", path)
//	if errors.Is(err, errors.ErrCodeParse) {
//	    // Handle malformed input
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the failure kinds of a reconciliation.
const (
	ErrCodeParse           Code = "PARSE_ERROR"
	ErrCodeRead            Code = "READ_ERROR"
	ErrCodeDirectory       Code = "DIRECTORY_ERROR"
	ErrCodeWrite           Code = "WRITE_ERROR"
	ErrCodeConfiguration   Code = "CONFIGURATION_ERROR"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeEmptyManifest   Code = "EMPTY_MANIFEST"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message and cause without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}

// Annotate prefixes the message of err with context. A structured error keeps
// its code and cause; any other error is wrapped with fmt.Errorf.
func Annotate(err error, format string, args ...any) error {
	prefix := fmt.Sprintf(format, args...)
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Message: prefix + ": " + e.Message,
			Cause:   e.Cause,
		}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
