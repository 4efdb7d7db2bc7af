// Package errors provides structured error handling for sigilid.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication failed
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied
)

// SigilError is the structured error type for sigilid.
type SigilError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *SigilError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *SigilError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for SigilError. Two SigilErrors match when their codes match.
func (e *SigilError) Is(target error) bool {
	var t *SigilError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &SigilError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &SigilError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	// Session errors.
	ErrNotAuthenticated = &SigilError{
		Code:     "NOT_AUTHENTICATED",
		Message:  "wallet is not unlocked",
		ExitCode: ExitAuth,
	}

	ErrNoStoredKey = &SigilError{
		Code:     "NO_STORED_KEY",
		Message:  "no encrypted secret key found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidPassword = &SigilError{
		Code:     "INVALID_PASSWORD",
		Message:  "invalid password",
		ExitCode: ExitAuth,
	}

	ErrInvalidMnemonic = &SigilError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid secret key phrase",
		ExitCode: ExitInput,
	}

	ErrAccountNotFound = &SigilError{
		Code:     "ACCOUNT_NOT_FOUND",
		Message:  "account not found",
		ExitCode: ExitNotFound,
	}

	// Auth handshake errors.
	ErrMalformedToken = &SigilError{
		Code:     "MALFORMED_TOKEN",
		Message:  "malformed auth request token",
		ExitCode: ExitInput,
	}

	ErrManifestUnavailable = &SigilError{
		Code:     "MANIFEST_UNAVAILABLE",
		Message:  "app manifest unavailable",
		ExitCode: ExitGeneral,
	}

	ErrRequestConsumed = &SigilError{
		Code:     "REQUEST_CONSUMED",
		Message:  "auth request has already been answered",
		ExitCode: ExitInput,
	}

	// Remote storage errors.
	ErrRemoteStorage = &SigilError{
		Code:     "REMOTE_STORAGE_FAILURE",
		Message:  "remote hub storage failed",
		ExitCode: ExitGeneral,
	}

	ErrNetworkError = &SigilError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	// Config-specific errors.
	ErrConfigInvalid = &SigilError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new SigilError with the given code and message.
func New(code, message string) *SigilError {
	return &SigilError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var se *SigilError
	if errors.As(err, &se) {
		return &SigilError{
			Code:       se.Code,
			Message:    fmt.Sprintf("%s: %s", msg, se.Message),
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      err,
			ExitCode:   se.ExitCode,
		}
	}

	return &SigilError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of the sentinel carrying cause as its underlying error.
// The copy still matches the sentinel with errors.Is.
func WithCause(sentinel *SigilError, cause error) error {
	return &SigilError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var se *SigilError
	if errors.As(err, &se) {
		return &SigilError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    details,
			Suggestion: se.Suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &SigilError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var se *SigilError
	if errors.As(err, &se) {
		return &SigilError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &SigilError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var se *SigilError
	if errors.As(err, &se) {
		return se.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var se *SigilError
	if errors.As(err, &se) {
		return se.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
