// Package errors provides typed errors for promptforge.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies the type of error.
type ErrorCode string

const (
	ErrInputInvalid       ErrorCode = "INPUT_INVALID"
	ErrInputTypeMismatch  ErrorCode = "INPUT_TYPE_MISMATCH"
	ErrRetrievalFailed    ErrorCode = "RETRIEVAL_FAILED"
	ErrGenerationFailed   ErrorCode = "GENERATION_FAILED"
	ErrExecutionFailed    ErrorCode = "EXECUTION_FAILED"
	ErrConstraintConflict ErrorCode = "CONSTRAINT_CONFLICT"
	ErrCacheBackend       ErrorCode = "CACHE_BACKEND"
	ErrConfigNotFound     ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigInvalid      ErrorCode = "CONFIG_INVALID"
	ErrAuthFailed         ErrorCode = "AUTH_FAILED"
)

// ForgeError represents a typed error with user-friendly hints.
type ForgeError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Cause   error

	// Transient marks generation failures that may succeed on retry
	// (timeouts, rate limits, dropped connections).
	Transient bool
}

func (e *ForgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// HintText returns the hint, satisfying the CLI's hint printer.
func (e *ForgeError) HintText() string {
	return e.Hint
}

// New creates a new ForgeError.
func New(code ErrorCode, message, hint string) *ForgeError {
	return &ForgeError{
		Code:    code,
		Message: message,
		Hint:    hint,
	}
}

// Wrap creates a new ForgeError wrapping an existing error.
func Wrap(code ErrorCode, message, hint string, cause error) *ForgeError {
	return &ForgeError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first ForgeError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var fe *ForgeError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsTransient reports whether err is a transient generation failure.
func IsTransient(err error) bool {
	var fe *ForgeError
	if stderrors.As(err, &fe) {
		return fe.Transient
	}
	return false
}

// InputInvalid returns an error for a missing or malformed input field.
func InputInvalid(field, reason string) *ForgeError {
	return &ForgeError{
		Code:    ErrInputInvalid,
		Message: fmt.Sprintf("invalid input %s: %s", field, reason),
		Hint:    "Provide a non-empty idea and check the request fields",
	}
}

// InputTypeMismatch returns an error for a field holding the wrong type.
func InputTypeMismatch(field, want string, got any) *ForgeError {
	return &ForgeError{
		Code:    ErrInputTypeMismatch,
		Message: fmt.Sprintf("invalid input %s: expected %s, got %T", field, want, got),
	}
}

// RetrievalFailed returns an error for an unavailable example source.
func RetrievalFailed(cause error) *ForgeError {
	return &ForgeError{
		Code:    ErrRetrievalFailed,
		Message: "example retrieval failed",
		Hint:    "Check the examples file configured under examples.file",
		Cause:   cause,
	}
}

// GenerationFailed returns an error for a failed generation call.
// Context deadline and cancellation causes are always transient.
func GenerationFailed(reason string, cause error) *ForgeError {
	transient := stderrors.Is(cause, context.DeadlineExceeded) || stderrors.Is(cause, context.Canceled)
	return &ForgeError{
		Code:      ErrGenerationFailed,
		Message:   fmt.Sprintf("generation failed: %s", reason),
		Hint:      "Try again, or use --offline for heuristic refinement only",
		Cause:     cause,
		Transient: transient,
	}
}

// GenerationTransient returns a generation error that is explicitly retryable.
func GenerationTransient(reason string, cause error) *ForgeError {
	err := GenerationFailed(reason, cause)
	err.Transient = true
	return err
}

// ExecutionFailed returns an error reported by an executor.
func ExecutionFailed(message string, cause error) *ForgeError {
	return &ForgeError{
		Code:    ErrExecutionFailed,
		Message: message,
		Cause:   cause,
	}
}

// ConstraintConflict returns an error for mutually exclusive constraints.
func ConstraintConflict(a, b string) *ForgeError {
	return &ForgeError{
		Code:    ErrConstraintConflict,
		Message: fmt.Sprintf("conflicting constraints: %s and %s", a, b),
		Hint:    "Declare at most one markdown rule per prompt",
	}
}

// CacheBackend returns an error for a durable cache tier failure.
func CacheBackend(op string, cause error) *ForgeError {
	return &ForgeError{
		Code:    ErrCacheBackend,
		Message: fmt.Sprintf("cache backend %s failed", op),
		Cause:   cause,
	}
}

// ConfigNotFound returns an error for missing config file.
func ConfigNotFound(path string) *ForgeError {
	return &ForgeError{
		Code:    ErrConfigNotFound,
		Message: fmt.Sprintf("config file not found: %s", path),
		Hint:    "Run `promptforge config init` to create a configuration",
	}
}

// ConfigInvalid returns an error for invalid config.
func ConfigInvalid(reason string) *ForgeError {
	return &ForgeError{
		Code:    ErrConfigInvalid,
		Message: fmt.Sprintf("invalid config: %s", reason),
		Hint:    "Check your config file at ~/.config/promptforge/config.yaml",
	}
}

// AuthFailed returns an error for a missing generator API key.
func AuthFailed() *ForgeError {
	return &ForgeError{
		Code:    ErrAuthFailed,
		Message: "Anthropic API authentication failed",
		Hint:    "Set ANTHROPIC_API_KEY or pass --offline",
	}
}
