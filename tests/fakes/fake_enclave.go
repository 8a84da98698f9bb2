package fakes

import (
	"sync"

	"github.com/systmms/credstore/pkg/credstore"
)

// FakeEnclave is a test double for credstore.Enclave.
//
// Secrets live in memory as collection -> key -> value. Errors can be
// injected per operation (GetErr, SetErr, ...) or per key (FailOn).
type FakeEnclave struct {
	mu sync.Mutex

	// Secrets is a map of collection -> key -> value
	Secrets map[string]map[string][]byte

	// GetErr, SetErr, RemoveErr and KeysErr override the corresponding
	// operation when set
	GetErr    error
	SetErr    error
	RemoveErr error
	KeysErr   error

	// ValidateErr is returned by Validate() if set
	ValidateErr error

	// FailOn returns the error for any operation on "collection/key"
	FailOn map[string]error

	// Caps is returned by Capabilities()
	Caps credstore.Capabilities

	// Calls counts operations by name ("get", "set", "remove", "keys")
	Calls map[string]int
}

// NewFakeEnclave creates an empty fake enclave.
func NewFakeEnclave() *FakeEnclave {
	return &FakeEnclave{
		Secrets: make(map[string]map[string][]byte),
		FailOn:  make(map[string]error),
		Calls:   make(map[string]int),
		Caps: credstore.Capabilities{
			Backend:           "fake",
			NativeEnumeration: true,
			SupportsBinary:    true,
		},
	}
}

// SetSecret seeds an entry.
func (f *FakeEnclave) SetSecret(collection, key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(collection, key, value)
}

// HasSecret reports whether an entry exists.
func (f *FakeEnclave) HasSecret(collection, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Secrets[collection][key]
	return ok
}

// Get retrieves a secret from the fake enclave
func (f *FakeEnclave) Get(collection, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["get"]++

	if err := f.failure(f.GetErr, collection, key); err != nil {
		return nil, err
	}
	if value, ok := f.Secrets[collection][key]; ok {
		out := make([]byte, len(value))
		copy(out, value)
		return out, nil
	}
	return nil, credstore.Wrap(credstore.ErrNotFound, ErrFakeItemNotFound)
}

// Set stores a copy of the secret
func (f *FakeEnclave) Set(collection, key string, secret []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["set"]++

	if err := f.failure(f.SetErr, collection, key); err != nil {
		return err
	}
	f.put(collection, key, secret)
	return nil
}

// Remove deletes an entry
func (f *FakeEnclave) Remove(collection, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["remove"]++

	if err := f.failure(f.RemoveErr, collection, key); err != nil {
		return err
	}
	if _, ok := f.Secrets[collection][key]; !ok {
		return credstore.Wrap(credstore.ErrNotFound, ErrFakeItemNotFound)
	}
	delete(f.Secrets[collection], key)
	if len(f.Secrets[collection]) == 0 {
		delete(f.Secrets, collection)
	}
	return nil
}

// Keys lists the keys of a collection
func (f *FakeEnclave) Keys(collection string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["keys"]++

	if f.KeysErr != nil {
		return nil, f.KeysErr
	}
	keys := make([]string, 0, len(f.Secrets[collection]))
	for k := range f.Secrets[collection] {
		keys = append(keys, k)
	}
	return keys, nil
}

// Validate returns ValidateErr
func (f *FakeEnclave) Validate() error {
	return f.ValidateErr
}

// Capabilities returns Caps
func (f *FakeEnclave) Capabilities() credstore.Capabilities {
	return f.Caps
}

func (f *FakeEnclave) put(collection, key string, value []byte) {
	if f.Secrets == nil {
		f.Secrets = make(map[string]map[string][]byte)
	}
	if f.Secrets[collection] == nil {
		f.Secrets[collection] = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	f.Secrets[collection][key] = stored
}

func (f *FakeEnclave) failure(opErr error, collection, key string) error {
	if opErr != nil {
		return opErr
	}
	return f.FailOn[collection+"/"+key]
}

// ErrFakeItemNotFound is the backend error wrapped for missing entries
var ErrFakeItemNotFound = &fakeEnclaveError{code: "itemNotFound"}

// ErrFakeAccessDenied mimics a refused unlock prompt
var ErrFakeAccessDenied = credstore.Wrap(credstore.ErrAccessDenied, &fakeEnclaveError{code: "accessDenied"})

// ErrFakeUnavailable mimics an unreachable secret service
var ErrFakeUnavailable = credstore.Wrap(credstore.ErrStorageUnavailable, &fakeEnclaveError{code: "serviceUnavailable"})

type fakeEnclaveError struct {
	code string
}

func (e *fakeEnclaveError) Error() string {
	switch e.code {
	case "itemNotFound":
		return "enclave item not found"
	case "accessDenied":
		return "enclave access denied"
	case "serviceUnavailable":
		return "enclave service unavailable"
	default:
		return "enclave error: " + e.code
	}
}

// Ensure FakeEnclave implements credstore.Enclave
var _ credstore.Enclave = (*FakeEnclave)(nil)
