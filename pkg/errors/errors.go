// Package errors provides structured error types for the cotton package manager.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the resolver, installer, and CLI
//   - Machine-readable error codes for programmatic handling (exit code mapping)
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - Resolution-stage codes (UNKNOWN_PACKAGE, UNSATISFIABLE, ...)
//   - NETWORK_*: Network-related errors
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnsatisfiable, "no version of %s satisfies %s", name, rng)
//	if errors.Is(err, errors.ErrCodeUnsatisfiable) {
//	    // Handle unsatisfiable range error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes, one per error kind named by spec §7.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeManifestParse   Code = "MANIFEST_PARSE"

	// Resolution errors
	ErrCodeUnknownPackage      Code = "UNKNOWN_PACKAGE"
	ErrCodeUnsatisfiable       Code = "UNSATISFIABLE"
	ErrCodeLockfileStale       Code = "LOCKFILE_STALE"
	ErrCodeLayoutUnsatisfiable Code = "LAYOUT_UNSATISFIABLE"

	// Archive/install errors
	ErrCodeIntegrityFailure Code = "INTEGRITY_FAILURE"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Control-flow errors
	ErrCodeCancelled Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}

// ExitCode maps an error to the process exit code described by spec §6.6:
// 0 success, 1 user-facing failure, 2 unexpected internal error. A run the
// user cancelled themselves (ErrCodeCancelled) maps to 0, since it is not
// reported as a failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case ErrCodeManifestParse, ErrCodeUnknownPackage, ErrCodeUnsatisfiable,
		ErrCodeIntegrityFailure, ErrCodeLockfileStale, ErrCodeInvalidInput,
		ErrCodeInvalidPackage, ErrCodeInvalidManifest, ErrCodeInvalidPath:
		return 1
	case ErrCodeCancelled:
		return 0
	default:
		return 2
	}
}
