package enclave

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/systmms/credstore/internal/enclave/contracts"
	"github.com/systmms/credstore/pkg/credstore"
)

// IndexAccount is the reserved account under which the os adapter keeps
// the list of keys of a collection. go-keyring cannot enumerate entries.
const IndexAccount = "credstore:index"

// encodedPrefix marks values written by this adapter. Values without it
// were written by other tools and are returned verbatim.
const encodedPrefix = "b64:"

// probeCollection is read by Validate to check the service is reachable.
const probeCollection = "credstore-probe"

// Logger receives adapter warnings
type Logger interface {
	Warn(format string, args ...interface{})
}

// OSKeyring implements credstore.Enclave on the native OS keyring
// (macOS Keychain, Linux Secret Service, Windows Credential Manager)
// through zalando/go-keyring.
type OSKeyring struct {
	servicePrefix string
	client        contracts.KeyringClient
	logger        Logger

	// mu serializes index read-modify-write cycles within this process.
	// Separate processes can still race on the index.
	mu sync.Mutex
}

// NewOSKeyring creates an os adapter using the platform client.
func NewOSKeyring(servicePrefix string) *OSKeyring {
	return NewOSKeyringWithClient(servicePrefix, newPlatformKeyringClient())
}

// NewOSKeyringWithClient creates an os adapter with a custom client.
// This is primarily for testing, allowing the keyring client to be mocked.
func NewOSKeyringWithClient(servicePrefix string, client contracts.KeyringClient) *OSKeyring {
	return &OSKeyring{
		servicePrefix: strings.TrimSuffix(servicePrefix, "."),
		client:        client,
	}
}

// SetLogger sets where index repairs are reported
func (o *OSKeyring) SetLogger(logger Logger) {
	o.logger = logger
}

// Service returns the keyring service name used for a collection
func (o *OSKeyring) Service(collection string) string {
	return credstore.ServiceName(o.servicePrefix, collection)
}

// Get retrieves a secret from the OS keyring
func (o *OSKeyring) Get(collection, key string) ([]byte, error) {
	service := o.Service(collection)
	if key == IndexAccount {
		return nil, wrap("get", service, key, ErrReservedKey)
	}

	value, err := o.client.Get(service, key)
	if err != nil {
		return nil, wrap("get", service, key, err)
	}

	secret, err := decodeValue(value)
	if err != nil {
		return nil, wrap("get", service, key, err)
	}
	return secret, nil
}

// Set stores a secret and records the key in the collection index. The
// index is read first so a failure leaves the stored value untouched.
func (o *OSKeyring) Set(collection, key string, secret []byte) error {
	service := o.Service(collection)
	if key == IndexAccount {
		return wrap("set", service, key, ErrReservedKey)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// A rebuilt index is empty, so the key below is always written back
	keys, _, err := o.loadIndex(service)
	if err != nil {
		return err
	}

	if err := o.client.Set(service, key, encodeValue(secret)); err != nil {
		return wrap("set", service, key, err)
	}

	if i := sort.SearchStrings(keys, key); i < len(keys) && keys[i] == key {
		return nil
	}
	return o.writeIndex(service, append(keys, key))
}

// Remove deletes a secret and drops the key from the collection index.
// A key missing from the keyring is dropped from the index as well so
// entries deleted by other tools do not linger there.
func (o *OSKeyring) Remove(collection, key string) error {
	service := o.Service(collection)
	if key == IndexAccount {
		return wrap("remove", service, key, ErrReservedKey)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	keys, rebuilt, err := o.loadIndex(service)
	if err != nil {
		return err
	}

	removeErr := o.client.Delete(service, key)
	if removeErr != nil && !isNotFoundError(removeErr) {
		return wrap("remove", service, key, removeErr)
	}

	kept := keys[:0]
	for _, k := range keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	if rebuilt || len(kept) != len(keys) {
		if err := o.writeIndex(service, kept); err != nil {
			return err
		}
	}

	if removeErr != nil {
		return wrap("remove", service, key, removeErr)
	}
	return nil
}

// Keys lists the keys recorded in the collection index. A corrupt index
// is reset to empty.
func (o *OSKeyring) Keys(collection string) ([]string, error) {
	service := o.Service(collection)

	o.mu.Lock()
	defer o.mu.Unlock()

	keys, rebuilt, err := o.loadIndex(service)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		if err := o.writeIndex(service, keys); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// Validate checks that a keyring is present and answers requests
func (o *OSKeyring) Validate() error {
	service := o.Service(probeCollection)
	if !o.client.IsAvailable() {
		return wrap("validate", service, "", ErrUnsupportedPlatform)
	}

	if _, err := o.client.Get(service, IndexAccount); err != nil && !isNotFoundError(err) {
		return wrap("validate", service, IndexAccount, err)
	}
	return nil
}

// Headless reports whether interactive unlock prompts cannot be shown
func (o *OSKeyring) Headless() bool {
	return o.client.IsHeadless()
}

// Capabilities describes the os adapter
func (o *OSKeyring) Capabilities() credstore.Capabilities {
	return credstore.Capabilities{
		Backend:           "os",
		NativeEnumeration: false,
		SupportsBinary:    true,
		MayPrompt:         true,
	}
}

// loadIndex returns the sorted key list of service. An index that cannot
// be decoded is reported and replaced by an empty one; rebuilt tells the
// caller to write it back. Callers hold o.mu.
func (o *OSKeyring) loadIndex(service string) (keys []string, rebuilt bool, err error) {
	keys, err = o.readIndex(service)
	if err == nil {
		return keys, false, nil
	}
	if !errors.Is(err, ErrCorruptIndex) {
		return nil, false, err
	}
	if o.logger != nil {
		o.logger.Warn("Resetting %s: %v. Keys stored before the reset are no longer listed.", service, err)
	}
	return []string{}, true, nil
}

// readIndex returns the sorted key list of service. Callers hold o.mu.
func (o *OSKeyring) readIndex(service string) ([]string, error) {
	raw, err := o.client.Get(service, IndexAccount)
	if err != nil {
		if isNotFoundError(err) {
			return []string{}, nil
		}
		return nil, wrap("keys", service, IndexAccount, err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, wrap("keys", service, IndexAccount, fmt.Errorf("%w: %v", ErrCorruptIndex, err))
	}
	sort.Strings(keys)
	return keys, nil
}

// writeIndex persists keys, deleting the index once the collection is
// empty. Callers hold o.mu.
func (o *OSKeyring) writeIndex(service string, keys []string) error {
	if len(keys) == 0 {
		if err := o.client.Delete(service, IndexAccount); err != nil && !isNotFoundError(err) {
			return wrap("remove", service, IndexAccount, err)
		}
		return nil
	}

	sort.Strings(keys)
	data, err := json.Marshal(keys)
	if err != nil {
		return wrap("set", service, IndexAccount, err)
	}
	if err := o.client.Set(service, IndexAccount, string(data)); err != nil {
		return wrap("set", service, IndexAccount, err)
	}
	return nil
}

func encodeValue(secret []byte) string {
	return encodedPrefix + base64.StdEncoding.EncodeToString(secret)
}

func decodeValue(value string) ([]byte, error) {
	if !strings.HasPrefix(value, encodedPrefix) {
		return []byte(value), nil
	}
	secret, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encodedPrefix))
	if err != nil {
		return nil, fmt.Errorf("stored value is not valid base64: %w", err)
	}
	return secret, nil
}

// goKeyring forwards to zalando/go-keyring. Platform clients embed it
// and add the availability probes.
type goKeyring struct{}

func (goKeyring) Get(service, account string) (string, error) {
	return gokeyring.Get(service, account)
}

func (goKeyring) Set(service, account, value string) error {
	return gokeyring.Set(service, account, value)
}

func (goKeyring) Delete(service, account string) error {
	return gokeyring.Delete(service, account)
}

// Ensure OSKeyring implements credstore.Enclave
var _ credstore.Enclave = (*OSKeyring)(nil)
