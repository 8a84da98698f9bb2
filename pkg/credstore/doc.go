// Package credstore provides a namespaced credential store backed by an
// OS secure enclave.
//
// A credential is addressed by a collection and a key. Collections group
// related secrets (for example every token belonging to one account) and
// can be removed in one call. The secret itself is an opaque byte slice;
// encryption and persistence are delegated to the enclave, which is
// treated as a trusted external service and never reimplemented here.
//
// # Operations
//
// The Store interface exposes:
//   - Get: read a secret (NotFound, AccessDenied, StorageUnavailable)
//   - Store: create or overwrite a secret
//   - Delete: remove a secret, idempotent unless Strict() is passed
//   - DeleteCollection: remove a whole collection and report the count
//   - Keys: list the key names of a collection
//
// Example:
//
//	store := credstore.New(enclave, credstore.Options{})
//
//	if err := store.Store(ctx, "default", "token", []byte("abc")); err != nil {
//	    return err
//	}
//
//	secret, err := store.Get(ctx, "default", "token")
//	if credstore.IsNotFound(err) {
//	    // ask the user to sign in again
//	}
//
// # Enclaves
//
// Keychain dispatches to an Enclave, the capability interface a
// platform adapter implements. Adapters for the OS keyring and the
// 99designs keyring family live in internal/enclave. Adapters classify
// their failures by wrapping ErrNotFound, ErrAccessDenied,
// ErrStorageUnavailable or ErrInvalidArgument; anything unclassified is
// reported as StorageUnavailable.
//
// New adapters can be checked with RunContractTests from a _test.go file.
//
// # Error Handling
//
// Every failure is an *Error carrying the operation, collection and key.
// CodeOf maps any error to the tag callers branch on:
//
//	switch credstore.CodeOf(err) {
//	case credstore.CodeNotFound:
//	case credstore.CodeAccessDenied:
//	case credstore.CodeStorageUnavailable:
//	case credstore.CodeInvalidArgument:
//	}
//
// # Security Considerations
//
// Keychain never caches secrets and never logs them; debug output only
// mentions collection, key and length. Callers holding secrets for longer
// than a call should move them into protected memory.
package credstore
