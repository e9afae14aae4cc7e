// Package errors provides structured error types for vibe.
package errors

import (
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for vibe.
const (
	// Initialization errors
	CodeNotInitialized     Code = "VIBE_NOT_INITIALIZED"
	CodeAlreadyInitialized Code = "VIBE_ALREADY_INITIALIZED"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
	CodeConfigMissing Code = "CONFIG_MISSING"

	// Provider errors, split into transient and permanent kinds
	CodeProviderRateLimit      Code = "PROVIDER_RATE_LIMIT"
	CodeProviderTimeout        Code = "PROVIDER_TIMEOUT"
	CodeProviderAuth           Code = "PROVIDER_AUTH"
	CodeProviderInvalidRequest Code = "PROVIDER_INVALID_REQUEST"
	CodeProviderUnavailable    Code = "PROVIDER_UNAVAILABLE"

	// File errors
	CodeFileNotFound   Code = "FILE_NOT_FOUND"
	CodeFilePermission Code = "FILE_PERMISSION"
	CodeFileUnsafePath Code = "FILE_UNSAFE_PATH"

	// State errors
	CodeStateCorrupt Code = "STATE_CORRUPT"

	// Precondition violations
	CodePhaseNotReady       Code = "PHASE_NOT_READY"
	CodeTaskNotFound        Code = "TASK_NOT_FOUND"
	CodeTaskDependencyUnmet Code = "TASK_DEPENDENCY_UNMET"
	CodeArtifactNotFound    Code = "ARTIFACT_NOT_FOUND"

	// Lock contention
	CodeConcurrentAccess Code = "CONCURRENT_ACCESS"

	// Git errors
	CodeGit Code = "GIT"
)

// transientCodes are provider failures worth retrying with backoff.
var transientCodes = map[Code]bool{
	CodeProviderRateLimit: true,
	CodeProviderTimeout:   true,
}

// VibeError is the structured error type for vibe.
type VibeError struct {
	Code  Code
	What  string
	Why   string
	Fix   string
	Cause error
}

// Error implements the error interface.
func (e *VibeError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *VibeError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *VibeError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Transient reports whether this error is worth retrying.
func (e *VibeError) Transient() bool {
	return transientCodes[e.Code]
}

// Is reports whether target is a VibeError with the same code.
func (e *VibeError) Is(target error) bool {
	t, ok := target.(*VibeError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *VibeError) WithCause(err error) *VibeError {
	return &VibeError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// AsVibeError attempts to convert an error to a VibeError.
// Returns nil if the error is not a VibeError anywhere in its chain.
func AsVibeError(err error) *VibeError {
	for err != nil {
		if ve, ok := err.(*VibeError); ok {
			return ve
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// IsTransient reports whether err is a transient provider failure.
func IsTransient(err error) bool {
	if ve := AsVibeError(err); ve != nil {
		return ve.Transient()
	}
	return false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	ve := AsVibeError(err)
	return ve != nil && ve.Code == code
}

// Wrap wraps a generic error into a VibeError with unknown code.
func Wrap(err error, what string) *VibeError {
	return &VibeError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrNotInitialized returns an error for an uninitialized project directory.
func ErrNotInitialized() *VibeError {
	return &VibeError{
		Code: CodeNotInitialized,
		What: "vibe is not initialized in this directory",
		Why:  "No .vibe/ directory found in the current path",
		Fix:  "Run 'vibe init' to initialize a project here",
	}
}

// ErrAlreadyInitialized returns an error when vibe is already initialized.
func ErrAlreadyInitialized(path string) *VibeError {
	return &VibeError{
		Code: CodeAlreadyInitialized,
		What: "vibe is already initialized",
		Why:  fmt.Sprintf("Found existing .vibe/ directory at %s", path),
		Fix:  "Use 'vibe init --force' to reinitialize, or remove .vibe/ manually",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(field, reason string) *VibeError {
	return &VibeError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .vibe/config.yaml and fix the invalid field",
	}
}

// ErrConfigMissing returns an error for missing configuration.
func ErrConfigMissing(field string) *VibeError {
	return &VibeError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Why:  "This field is required but not set in configuration",
		Fix:  fmt.Sprintf("Add '%s' to .vibe/config.yaml", field),
	}
}

// ErrProviderRateLimit returns a transient rate-limit error.
func ErrProviderRateLimit(provider string) *VibeError {
	return &VibeError{
		Code: CodeProviderRateLimit,
		What: fmt.Sprintf("%s rate limit exceeded", provider),
		Why:  "The provider rejected the request because of rate limiting",
		Fix:  "The request is retried automatically; if it keeps failing, wait and retry",
	}
}

// ErrProviderTimeout returns a transient timeout error.
func ErrProviderTimeout(provider string, timeout string) *VibeError {
	return &VibeError{
		Code: CodeProviderTimeout,
		What: fmt.Sprintf("%s request timed out", provider),
		Why:  fmt.Sprintf("No response received within %s", timeout),
		Fix:  "Increase 'timeout' in .vibe/config.yaml or check your network",
	}
}

// ErrProviderAuth returns a permanent authentication error.
func ErrProviderAuth(provider, envVar string) *VibeError {
	return &VibeError{
		Code: CodeProviderAuth,
		What: fmt.Sprintf("%s authentication failed", provider),
		Why:  "The API key is missing or was rejected",
		Fix:  fmt.Sprintf("Set the %s environment variable to a valid key", envVar),
	}
}

// ErrProviderInvalidRequest returns a permanent invalid-request error.
func ErrProviderInvalidRequest(provider, reason string) *VibeError {
	return &VibeError{
		Code: CodeProviderInvalidRequest,
		What: fmt.Sprintf("%s rejected the request", provider),
		Why:  reason,
		Fix:  "Check the model name and token budget in configuration",
	}
}

// ErrProviderUnavailable returns an error for an unknown or unreachable provider.
func ErrProviderUnavailable(name string) *VibeError {
	return &VibeError{
		Code: CodeProviderUnavailable,
		What: fmt.Sprintf("provider %q is not available", name),
		Why:  "Supported providers are anthropic, openai and google",
		Fix:  "Set 'provider' in .vibe/config.yaml to a supported value",
	}
}

// ErrFileNotFound returns an error when a file doesn't exist.
func ErrFileNotFound(path string) *VibeError {
	return &VibeError{
		Code: CodeFileNotFound,
		What: fmt.Sprintf("file not found: %s", path),
		Fix:  "Check the path, or regenerate the file with the matching phase command",
	}
}

// ErrFilePermission returns an error for filesystem permission failures.
func ErrFilePermission(path string) *VibeError {
	return &VibeError{
		Code: CodeFilePermission,
		What: fmt.Sprintf("permission denied: %s", path),
		Fix:  "Check file ownership and permissions",
	}
}

// ErrUnsafePath returns an error when a path escapes the project root.
func ErrUnsafePath(path string) *VibeError {
	return &VibeError{
		Code: CodeFileUnsafePath,
		What: fmt.Sprintf("path resolves outside the project root: %s", path),
		Why:  "vibe only reads and writes files inside the project",
	}
}

// ErrStateCorrupt returns a fatal error for corrupted persisted state.
// State is never auto-repaired; repairing silently could mask data loss.
func ErrStateCorrupt(path string, cause error) *VibeError {
	return &VibeError{
		Code:  CodeStateCorrupt,
		What:  "project state is corrupted",
		Why:   fmt.Sprintf("Could not parse %s", path),
		Fix:   "Restore a previous state with 'vibe undo', or inspect .vibe/history.db",
		Cause: cause,
	}
}

// ErrPhaseNotReady returns a precondition error for illegal phase transitions.
func ErrPhaseNotReady(phase, reason string) *VibeError {
	return &VibeError{
		Code: CodePhaseNotReady,
		What: fmt.Sprintf("phase %s is not ready", phase),
		Why:  reason,
		Fix:  "Run 'vibe status' to see phase progress and finish the current phase first",
	}
}

// ErrTaskNotFound returns an error when a task doesn't exist.
func ErrTaskNotFound(id string) *VibeError {
	return &VibeError{
		Code: CodeTaskNotFound,
		What: fmt.Sprintf("task %s not found", id),
		Fix:  "Run 'vibe status' to list tasks",
	}
}

// ErrTaskDependencyUnmet returns a precondition error for task transitions.
func ErrTaskDependencyUnmet(id, reason string) *VibeError {
	return &VibeError{
		Code: CodeTaskDependencyUnmet,
		What: fmt.Sprintf("task %s cannot transition", id),
		Why:  reason,
		Fix:  "Complete the blocking tasks first, or skip them explicitly",
	}
}

// ErrArtifactNotFound returns an error when a named artifact is absent.
func ErrArtifactNotFound(name string) *VibeError {
	return &VibeError{
		Code: CodeArtifactNotFound,
		What: fmt.Sprintf("artifact %s not found", name),
		Why:  "The document has not been generated yet",
		Fix:  "Run the phase command that produces it (see 'vibe status')",
	}
}

// ErrConcurrentAccess returns an error when another step holds the project lock.
func ErrConcurrentAccess(owner string, pid int) *VibeError {
	return &VibeError{
		Code: CodeConcurrentAccess,
		What: "another vibe command is already running on this project",
		Why:  fmt.Sprintf("The project lock is held by %s (pid %d)", owner, pid),
		Fix:  "Wait for the other command to finish; stale locks are claimed automatically",
	}
}

// ErrGit wraps a git collaborator failure.
func ErrGit(op string, cause error) *VibeError {
	return &VibeError{
		Code:  CodeGit,
		What:  fmt.Sprintf("git %s failed", op),
		Fix:   "Check 'git status' and resolve the repository state manually",
		Cause: cause,
	}
}
