package credstore

import (
	"errors"
	"fmt"
)

// Code tags a failed operation with one of the error kinds callers are
// expected to branch on.
type Code string

const (
	// CodeOK is reported for successful operations.
	CodeOK Code = "OK"
	// CodeNotFound means the entry does not exist.
	CodeNotFound Code = "NotFound"
	// CodeAccessDenied means the enclave refused the request, for example
	// after a failed biometric check or a cancelled unlock prompt.
	CodeAccessDenied Code = "AccessDenied"
	// CodeStorageUnavailable means the backing service could not be reached.
	CodeStorageUnavailable Code = "StorageUnavailable"
	// CodeInvalidArgument means the collection, key or secret was rejected
	// before (or by) the enclave.
	CodeInvalidArgument Code = "InvalidArgument"
)

// Sentinel errors. Enclave implementations wrap one of these so the
// store can classify failures with errors.Is.
var (
	ErrNotFound           = errors.New("credential not found")
	ErrAccessDenied       = errors.New("access to credential denied")
	ErrStorageUnavailable = errors.New("credential storage unavailable")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// Error describes a failed store operation.
//
// Err always wraps exactly one sentinel, optionally joined with the
// underlying enclave error, so both errors.Is(err, ErrNotFound) and
// errors.Is(err, someBackendErr) hold.
type Error struct {
	Op         string // "get", "store", "delete", "delete-collection", "keys"
	Collection string
	Key        string
	Err        error
}

func (e *Error) Error() string {
	target := e.Collection
	if e.Key != "" {
		target += "/" + e.Key
	}
	if target == "" {
		return fmt.Sprintf("credstore %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("credstore %s %s: %v", e.Op, target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the kind of this failure.
func (e *Error) Code() Code {
	return CodeOf(e.Err)
}

// CodeOf classifies err. A nil error is CodeOK; errors wrapping none of
// the sentinels are reported as CodeStorageUnavailable because the only
// remaining source of failure is the enclave itself.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	default:
		return CodeStorageUnavailable
	}
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied reports whether the enclave refused the request.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// Wrap tags cause with a sentinel. It is meant for Enclave
// implementations translating backend errors.
func Wrap(sentinel, cause error) error {
	switch {
	case cause == nil:
		return sentinel
	case errors.Is(cause, sentinel):
		return cause
	default:
		return fmt.Errorf("%w: %w", sentinel, cause)
	}
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
