package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/credstore/pkg/credstore"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// StoreError enhances credential store errors with context for the
// configured backend
func StoreError(backend string, operation string, err error) error {
	if err == nil {
		return nil
	}

	return UserError{
		Message:    fmt.Sprintf("%s failed (%s)", operation, credstore.CodeOf(err)),
		Details:    err.Error(),
		Suggestion: getStoreSuggestion(backend, err),
		Err:        err,
	}
}

// getStoreSuggestion returns helpful suggestions based on backend and error
func getStoreSuggestion(backend string, err error) string {
	errStr := strings.ToLower(err.Error())

	switch credstore.CodeOf(err) {
	case credstore.CodeNotFound:
		return "List existing entries with 'credstore keys --collection <name>'"

	case credstore.CodeInvalidArgument:
		return "Collection and key must be non-empty and must not contain control characters"

	case credstore.CodeAccessDenied:
		switch backend {
		case "os", "keyring":
			if strings.Contains(errStr, "interaction is not allowed") || strings.Contains(errStr, "locked") {
				return "Unlock the login keychain or keyring, then retry"
			}
			return "Approve the keychain prompt, or grant this binary access in your keychain manager"
		case "file":
			return "Check the file keyring password (CREDSTORE_FILE_PASSWORD)"
		}

	case credstore.CodeStorageUnavailable:
		if strings.Contains(errStr, "dbus") || strings.Contains(errStr, "secrets") {
			return "Start a Secret Service daemon (gnome-keyring, KeePassXC) or set 'backend.type: file' in credstore.yaml"
		}
		if strings.Contains(errStr, "not supported") || strings.Contains(errStr, "no available") {
			return "This platform has no supported keychain. Set 'backend.type: file' in credstore.yaml"
		}
		return "Run 'credstore doctor' to check the configured backend"
	}

	return ""
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return 1
	}

	var storeErr *credstore.Error
	if !errors.As(err, &storeErr) {
		return 1
	}

	switch storeErr.Code() {
	case credstore.CodeNotFound:
		return 2
	case credstore.CodeAccessDenied:
		return 3
	case credstore.CodeStorageUnavailable:
		return 4
	case credstore.CodeInvalidArgument:
		return 5
	default:
		return 1
	}
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
