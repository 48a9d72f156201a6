// Package errors provides error types and handling for glidepath.
// It includes orchestration error types with error codes, the affected
// resource, and a human-actionable remedy.
package errors

import (
	"errors"
	"fmt"
)

// OrchestrationError represents a deployment orchestration error tied to a
// resource node.
type OrchestrationError struct {
	// Code is an error code string for programmatic handling
	Code string
	// Resource is the id of the resource node the error concerns (may be empty)
	Resource string
	// Message is a user-friendly error message
	Message string
	// Remedy is a human-actionable next step (retry command, manual CLI
	// invocation, or wait-and-recheck guidance)
	Remedy string
	// Cause is the underlying error (for error wrapping)
	Cause error
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	msg := e.Message
	if e.Resource != "" {
		msg = fmt.Sprintf("%s: %s", e.Resource, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OrchestrationError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to match on error codes.
func (e *OrchestrationError) Is(target error) bool {
	if t, ok := target.(*OrchestrationError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// Predefined error codes.
const (
	// CodePreflightFailed indicates one or more validation checks failed
	// before any mutation; no cloud state changed.
	CodePreflightFailed = "PREFLIGHT_FAILED"
	// CodeApplyFailed indicates a create/update call for a resource node
	// returned an error; independent branches may still have completed.
	CodeApplyFailed = "APPLY_FAILED"
	// CodeConvergenceTimeout indicates a readiness probe did not converge
	// within its budget.
	CodeConvergenceTimeout = "CONVERGENCE_TIMEOUT"
	// CodeProtectedResource indicates deletion stayed blocked by a protection
	// flag after one clear-and-retry cycle.
	CodeProtectedResource = "PROTECTED_RESOURCE"
	// CodeBlockingDependency indicates a destroy target still has live
	// dependents outside the requested stage.
	CodeBlockingDependency = "BLOCKING_DEPENDENCY"
	// CodeConfigInvalid indicates the configuration failed validation.
	CodeConfigInvalid = "CONFIG_INVALID"
	// CodeRunLocked indicates another run currently holds the environment lock.
	CodeRunLocked = "RUN_LOCKED"
)

// ErrPreflightFailed creates an aggregated preflight failure.
func ErrPreflightFailed(message string, cause error) *OrchestrationError {
	return &OrchestrationError{
		Code:    CodePreflightFailed,
		Message: message,
		Remedy:  "address the listed failures and re-run the same command",
		Cause:   cause,
	}
}

// ErrApplyFailed creates an apply failure for a resource node.
func ErrApplyFailed(resource, message string, cause error) *OrchestrationError {
	return &OrchestrationError{
		Code:     CodeApplyFailed,
		Resource: resource,
		Message:  message,
		Remedy:   fmt.Sprintf("fix the underlying cause and re-run apply; %s is idempotent for already-ready resources", resource),
		Cause:    cause,
	}
}

// ErrConvergenceTimeout creates a convergence timeout for a resource node.
func ErrConvergenceTimeout(resource string, cause error) *OrchestrationError {
	return &OrchestrationError{
		Code:     CodeConvergenceTimeout,
		Resource: resource,
		Message:  "did not reach ready state within its timeout budget",
		Remedy:   "wait and re-check with the status command, or re-run apply",
		Cause:    cause,
	}
}

// ErrProtectedResource creates a protected-resource deletion failure.
// remedy carries the manual CLI command that clears the flag.
func ErrProtectedResource(resource, remedy string, cause error) *OrchestrationError {
	return &OrchestrationError{
		Code:     CodeProtectedResource,
		Resource: resource,
		Message:  "deletion protection could not be cleared after one retry",
		Remedy:   remedy,
		Cause:    cause,
	}
}

// ErrBlockingDependency creates a blocked-destroy failure naming the live
// dependent.
func ErrBlockingDependency(resource, dependent string) *OrchestrationError {
	return &OrchestrationError{
		Code:     CodeBlockingDependency,
		Resource: resource,
		Message:  fmt.Sprintf("still depended on by %q which is not part of the requested destroy", dependent),
		Remedy:   fmt.Sprintf("destroy %q first, or request a destroy target that includes it", dependent),
	}
}

// ErrConfigInvalid creates a configuration validation failure.
func ErrConfigInvalid(message string, cause error) *OrchestrationError {
	return &OrchestrationError{
		Code:    CodeConfigInvalid,
		Message: message,
		Remedy:  "fix the configuration file and re-run",
		Cause:   cause,
	}
}

// ErrRunLocked creates a lock-contention failure for an environment.
func ErrRunLocked(environment, holder string) *OrchestrationError {
	return &OrchestrationError{
		Code:     CodeRunLocked,
		Resource: environment,
		Message:  fmt.Sprintf("another run holds the lock (%s)", holder),
		Remedy:   "wait for the other run to finish, or remove the stale lock file if no run is active",
	}
}

// GetCode extracts the error code from an error.
// Returns empty string if the error is not an OrchestrationError.
func GetCode(err error) string {
	var oerr *OrchestrationError
	if errors.As(err, &oerr) {
		return oerr.Code
	}
	return ""
}

// GetRemedy extracts the remedy from an error, if any.
func GetRemedy(err error) string {
	var oerr *OrchestrationError
	if errors.As(err, &oerr) {
		return oerr.Remedy
	}
	return ""
}

// IsValidationRejection reports whether err represents a rejection before any
// mutation (preflight, config, lock, blocking dependency). These map to a
// distinct exit code from apply failures.
func IsValidationRejection(err error) bool {
	switch GetCode(err) {
	case CodePreflightFailed, CodeConfigInvalid, CodeRunLocked, CodeBlockingDependency:
		return true
	}
	return false
}
