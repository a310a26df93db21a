// Package errors provides typed errors for the scl project.
//
// This package defines domain-specific error types that provide structured
// error information for the different subsystems (config, metadata, backends,
// the supervisor and search). All error types implement the standard error
// interface and support errors.Is() and errors.As() from the standard library
// and cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InterruptedExitCode is the process exit code used when the user interrupts
// a recording or replay from the outer wrapper.
const InterruptedExitCode = 2

// ErrInterrupted is returned when an operation was stopped by the user (SIGINT).
var ErrInterrupted = errors.New("interrupted by user")

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Field   string // Which config key has the issue
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
	}
	return "config error: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with an underlying cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError represents a malformed metadata document.
type ValidationError struct {
	Path    string // File the metadata was read from, if any
	Field   string // Offending metadata field
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var msg string
	if e.Field != "" {
		msg = fmt.Sprintf("invalid metadata field %q: %s", e.Field, e.Message)
	} else {
		msg = "invalid metadata: " + e.Message
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithCause creates a new ValidationError with an underlying cause.
func NewValidationErrorWithCause(field, message string, cause error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Cause: cause}
}

// WithPath returns a copy of the error annotated with the file it came from.
func (e *ValidationError) WithPath(path string) *ValidationError {
	c := *e
	c.Path = path
	return &c
}

// ExecutionError represents a failure to run the recorded program.
// It never escapes the supervisor: it is turned into the metadata error message.
type ExecutionError struct {
	Program string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Program != "" {
		return fmt.Sprintf("execution of %s failed: %s", e.Program, e.Message)
	}
	return "execution failed: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(program, message string, cause error) *ExecutionError {
	return &ExecutionError{Program: program, Message: message, Cause: cause}
}

// BackendUnavailableError is returned when a recording backend cannot be used
// on the current operating system.
type BackendUnavailableError struct {
	Backend string
	OS      string
	Message string
}

// Error implements the error interface.
func (e *BackendUnavailableError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("backend %s is not available on %s: %s", e.Backend, e.OS, e.Message)
	}
	return fmt.Sprintf("no backend available on %s: %s", e.OS, e.Message)
}

// NewBackendUnavailableError creates a new BackendUnavailableError.
func NewBackendUnavailableError(backend, goos, message string) *BackendUnavailableError {
	return &BackendUnavailableError{Backend: backend, OS: goos, Message: message}
}

// UsageError represents an invalid combination of arguments from the caller.
type UsageError struct {
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return "usage error: " + e.Message
}

// NewUsageError creates a new UsageError.
func NewUsageError(message string) *UsageError {
	return &UsageError{Message: message}
}

// StorageError represents a failure to persist a session artifact.
type StorageError struct {
	Operation string // e.g., "write", "rename"
	Path      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s of %s failed: %s", e.Operation, e.Path, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation, path, message string, cause error) *StorageError {
	return &StorageError{Operation: operation, Path: path, Message: message, Cause: cause}
}

// IsRetryable checks if an error or any error in its chain is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Retryable
	}

	return false
}

// IsConfigError checks if an error or any error in its chain is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsValidationError checks if an error or any error in its chain is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsExecutionError checks if an error or any error in its chain is an ExecutionError.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}

// IsBackendUnavailable checks if an error or any error in its chain is a BackendUnavailableError.
func IsBackendUnavailable(err error) bool {
	var backendErr *BackendUnavailableError
	return errors.As(err, &backendErr)
}

// IsUsageError checks if an error or any error in its chain is a UsageError.
func IsUsageError(err error) bool {
	var usageErr *UsageError
	return errors.As(err, &usageErr)
}

// IsInterrupted checks if an error chain contains ErrInterrupted.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// Re-export commonly used functions from cockroachdb/errors for convenience.
// This allows consumers to use sclerrors.Wrap() instead of importing two packages.
var (
	// New creates a new error with the given message.
	New = errors.New

	// Newf creates a new error with formatted message.
	Newf = errors.Newf

	// Wrap wraps an error with additional context.
	Wrap = errors.Wrap

	// Wrapf wraps an error with formatted additional context.
	Wrapf = errors.Wrapf

	// Is reports whether any error in err's chain matches target.
	Is = errors.Is

	// As finds the first error in err's chain that matches target.
	As = errors.As

	// Cause returns the root cause of an error.
	Cause = errors.Cause
)
