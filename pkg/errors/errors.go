// Package errors provides structured error types for the pnp tools.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across all subcommands
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - CONFIG_*: invalid stack registry sources, override directives, profiles
//   - PARSE_*: malformed placement rows in a position file
//   - GEOMETRY_*: board geometry the transform cannot handle
//   - INTERNAL_*: unexpected internal errors
//
// Configuration and parse errors are fatal: the run aborts before any
// machine file is written.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfigStack, "invalid slot: %s", cell)
//	if errors.IsConfig(err) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParseRow, origErr, "%s:%d", path, line)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors (stack file, override directives, profiles)
	ErrCodeConfigStack   Code = "CONFIG_STACK"
	ErrCodeConfigOption  Code = "CONFIG_OPTION"
	ErrCodeConfigProfile Code = "CONFIG_PROFILE"
	ErrCodeConfigMark    Code = "CONFIG_MARK"
	ErrCodeConfigFilter  Code = "CONFIG_FILTER"

	// Placement row parse errors
	ErrCodeParseRow        Code = "PARSE_ROW"
	ErrCodeParsePartNumber Code = "PARSE_PART_NUMBER"
	ErrCodeParseLayer      Code = "PARSE_LAYER"

	// Board geometry errors
	ErrCodeGeometryOrigin Code = "GEOMETRY_ORIGIN"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// IsConfig reports whether err carries any CONFIG_* code.
func IsConfig(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "CONFIG_")
}

// IsParse reports whether err carries any PARSE_* code.
func IsParse(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "PARSE_")
}

// IsGeometry reports whether err carries any GEOMETRY_* code.
func IsGeometry(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "GEOMETRY_")
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
