package credstore

// Enclave is the capability abstraction over an OS-provided secure
// storage service. Collections map to whatever namespacing the backend
// offers (a keychain service, a Secret Service label, a file keyring).
//
// Implementations must wrap failures with the package sentinels:
// ErrNotFound for missing entries, ErrAccessDenied when the user or OS
// refused access, ErrStorageUnavailable when the service cannot be
// reached and ErrInvalidArgument when the backend rejects the data.
// Implementations never cache secret values.
type Enclave interface {
	// Get returns the secret stored under (collection, key).
	Get(collection, key string) ([]byte, error)

	// Set creates or overwrites the entry.
	Set(collection, key string, secret []byte) error

	// Remove deletes the entry. Missing entries yield ErrNotFound.
	Remove(collection, key string) error

	// Keys lists the keys of a collection. A collection that was never
	// written returns an empty slice and no error.
	Keys(collection string) ([]string, error)

	// Validate checks that the backing service is reachable.
	Validate() error

	// Capabilities describes the adapter.
	Capabilities() Capabilities
}

// Capabilities describes what an Enclave adapter supports.
type Capabilities struct {
	// Backend names the adapter, e.g. "os" or "keyring/file".
	Backend string

	// NativeEnumeration is false when the adapter tracks collection
	// membership itself because the backend cannot list entries.
	NativeEnumeration bool

	// SupportsBinary is true when arbitrary bytes round-trip unchanged.
	SupportsBinary bool

	// MayPrompt is true when operations can block on user interaction
	// (unlock dialogs, biometric prompts, password entry).
	MayPrompt bool
}
