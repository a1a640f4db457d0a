// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Process exit codes
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToExitCode mapping
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Process exit codes
// ============================================================================

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitIndex   = 3
	ExitPartial = 4
)

// ExitName returns a human-readable name for an exit code.
func ExitName(code int) string {
	switch code {
	case ExitOK:
		return "OK"
	case ExitFailure:
		return "Failure"
	case ExitUsage:
		return "Usage"
	case ExitIndex:
		return "IndexQuery"
	case ExitPartial:
		return "PartialDownload"
	default:
		return fmt.Sprintf("Exit(%d)", code)
	}
}

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Index errors
	ErrIndexQuery       = errors.New("index query failed")
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrInvalidFilter    = errors.New("invalid filter expression")
	ErrInvalidCursor    = errors.New("invalid continuation cursor")

	// Object store errors
	ErrFetch          = errors.New("fetch failed")
	ErrObjectNotFound = errors.New("object not found")
	ErrTimeout        = errors.New("timeout")
	ErrConnection     = errors.New("connection failed")

	// Filesystem errors
	ErrFilesystem   = errors.New("filesystem error")
	ErrCreateDir    = errors.New("cannot create directory")
	ErrWriteFile    = errors.New("cannot write file")
	ErrHomeDirUnset = errors.New("home directory unavailable")

	// Validation errors
	ErrInvalidKey     = errors.New("invalid object key")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidBackend = errors.New("invalid backend")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrPanic    = errors.New("panic in task")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsIndexError returns true if err came from the station or file index.
func IsIndexError(err error) bool {
	return errors.Is(err, ErrIndexQuery) ||
		errors.Is(err, ErrIndexUnavailable) ||
		errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidCursor)
}

// IsFetchError returns true if err is an object store failure.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch) ||
		errors.Is(err, ErrObjectNotFound) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnection)
}

// IsFilesystemError returns true if err is a local filesystem failure.
func IsFilesystemError(err error) bool {
	return errors.Is(err, ErrFilesystem) ||
		errors.Is(err, ErrCreateDir) ||
		errors.Is(err, ErrWriteFile) ||
		errors.Is(err, ErrHomeDirUnset)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidBackend)
}

// IsRetriable returns true if the error is potentially retriable.
// Missing objects and local filesystem errors never are.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) || IsFilesystemError(err) || IsValidation(err) {
		return false
	}
	return errors.Is(err, ErrFetch) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnection)
}

// ============================================================================
// Error to exit code mapping
// ============================================================================

// ErrorToExitCode maps an error returned by a command to a process exit code.
func ErrorToExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch {
	case IsValidation(err):
		return ExitUsage
	case IsIndexError(err):
		return ExitIndex
	case IsFetchError(err), IsFilesystemError(err):
		return ExitPartial
	default:
		return ExitFailure
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Mark attaches a sentinel category to err while keeping err in the chain.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// NewInvalidKey creates an invalid object key error.
func NewInvalidKey(key, reason string) error {
	return fmt.Errorf("key %q: %s: %w", key, reason, ErrInvalidKey)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
