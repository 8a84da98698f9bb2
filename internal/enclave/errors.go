package enclave

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/99designs/keyring"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/systmms/credstore/pkg/credstore"
)

// EnclaveError wraps backend errors with context
type EnclaveError struct {
	Op      string // Operation: "get", "set", "remove", "keys", "open", "validate"
	Service string
	Account string
	Err     error
}

func (e *EnclaveError) Error() string {
	target := e.Service
	if e.Account != "" {
		target += "/" + e.Account
	}
	if e.Err != nil {
		return fmt.Sprintf("enclave %s error for %s: %v", e.Op, target, e.Err)
	}
	return fmt.Sprintf("enclave %s error for %s", e.Op, target)
}

func (e *EnclaveError) Unwrap() error {
	return e.Err
}

// Enclave sentinel errors
var (
	ErrUnsupportedPlatform = fmt.Errorf("keyring not supported on this platform")
	ErrReservedKey         = fmt.Errorf("key is reserved for the collection index")
	ErrCorruptIndex        = fmt.Errorf("collection index is corrupt")
	ErrPasswordRequired    = fmt.Errorf("file keyring password required (set CREDSTORE_FILE_PASSWORD)")
	ErrUnsafeKey           = fmt.Errorf("key has an empty, \".\" or \"..\" path element")
)

// wrap classifies err and attaches the operation context.
func wrap(op, service, account string, err error) error {
	if err == nil {
		return nil
	}
	return &EnclaveError{
		Op:      op,
		Service: service,
		Account: account,
		Err:     classify(err),
	}
}

// classify tags a backend error with the matching credstore sentinel.
func classify(err error) error {
	switch {
	case isNotFoundError(err):
		return credstore.Wrap(credstore.ErrNotFound, err)
	case errors.Is(err, gokeyring.ErrSetDataTooBig), errors.Is(err, ErrReservedKey), errors.Is(err, ErrUnsafeKey):
		return credstore.Wrap(credstore.ErrInvalidArgument, err)
	case isAccessDeniedError(err):
		return credstore.Wrap(credstore.ErrAccessDenied, err)
	default:
		return credstore.Wrap(credstore.ErrStorageUnavailable, err)
	}
}

// isNotFoundError checks if an error indicates item not found
func isNotFoundError(err error) bool {
	if errors.Is(err, gokeyring.ErrNotFound) ||
		errors.Is(err, keyring.ErrKeyNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, credstore.ErrNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "itemNotFound") ||
		strings.Contains(errStr, "could not be found in the keychain")
}

// isAccessDeniedError checks if an error indicates access was denied
func isAccessDeniedError(err error) bool {
	if errors.Is(err, credstore.ErrAccessDenied) || errors.Is(err, ErrPasswordRequired) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"access denied",
		"user denied",
		"canceled",
		"cancelled",
		"not authorized",
		"authorization",
		"interaction is not allowed",
		"is locked",
		"aes.keyunwrap(): integrity check failed",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
