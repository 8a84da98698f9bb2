package enclave

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/99designs/keyring"

	"github.com/systmms/credstore/pkg/credstore"
)

// Opener opens a keyring. keyring.Open in production, an ArrayKeyring
// factory in tests.
type Opener func(cfg keyring.Config) (keyring.Keyring, error)

// RingConfig configures the 99designs keyring adapter
type RingConfig struct {
	// ServicePrefix is prepended to collection names to form the keyring
	// service name
	ServicePrefix string

	// AllowedBackends restricts which keyring backends are tried, in order.
	// Empty means every backend available on the platform.
	AllowedBackends []keyring.BackendType

	// KeychainName (macOS) selects the keychain file
	KeychainName string

	// FileDir is the root of the encrypted file backend; each collection
	// gets its own subdirectory
	FileDir string

	// FilePasswordFunc supplies the file backend password
	FilePasswordFunc keyring.PromptFunc
}

// Ring implements credstore.Enclave on 99designs/keyring. Each collection
// is opened as its own keyring so backends can enumerate it natively.
// Opened handles are cached; secret values never are.
type Ring struct {
	cfg  RingConfig
	open Opener

	mu    sync.Mutex
	rings map[string]keyring.Keyring
}

// NewRing creates a keyring adapter using keyring.Open
func NewRing(cfg RingConfig) *Ring {
	return NewRingWithOpener(cfg, keyring.Open)
}

// NewRingWithOpener creates a keyring adapter with a custom opener.
// This is primarily for testing.
func NewRingWithOpener(cfg RingConfig, open Opener) *Ring {
	cfg.ServicePrefix = strings.TrimSuffix(cfg.ServicePrefix, ".")
	return &Ring{
		cfg:   cfg,
		open:  open,
		rings: make(map[string]keyring.Keyring),
	}
}

// Service returns the keyring service name used for a collection
func (r *Ring) Service(collection string) string {
	return credstore.ServiceName(r.cfg.ServicePrefix, collection)
}

// Get retrieves a secret
func (r *Ring) Get(collection, key string) ([]byte, error) {
	if err := checkPathKey(key); err != nil {
		return nil, wrap("get", r.Service(collection), key, err)
	}
	kr, err := r.ring(collection)
	if err != nil {
		return nil, err
	}

	item, err := kr.Get(key)
	if err != nil {
		return nil, wrap("get", r.Service(collection), key, err)
	}
	return item.Data, nil
}

// Set creates or overwrites a secret
func (r *Ring) Set(collection, key string, secret []byte) error {
	if err := checkPathKey(key); err != nil {
		return wrap("set", r.Service(collection), key, err)
	}
	kr, err := r.ring(collection)
	if err != nil {
		return err
	}

	service := r.Service(collection)
	item := keyring.Item{
		Key:         key,
		Data:        secret,
		Label:       service + " " + key,
		Description: "credstore entry",
	}
	if err := kr.Set(item); err != nil {
		return wrap("set", service, key, err)
	}
	return nil
}

// Remove deletes a secret. Backends disagree on whether removing a
// missing item is an error, so membership is checked first.
func (r *Ring) Remove(collection, key string) error {
	if err := checkPathKey(key); err != nil {
		return wrap("remove", r.Service(collection), key, err)
	}
	kr, err := r.ring(collection)
	if err != nil {
		return err
	}

	service := r.Service(collection)
	keys, err := kr.Keys()
	if err != nil && !isNotFoundError(err) {
		return wrap("remove", service, key, err)
	}
	if !contains(keys, key) {
		return wrap("remove", service, key, keyring.ErrKeyNotFound)
	}

	if err := kr.Remove(key); err != nil {
		return wrap("remove", service, key, err)
	}
	return nil
}

// checkPathKey rejects keys the file and pass backends would resolve to
// another location: "." and ".." elements, and empty elements around a
// separator.
func checkPathKey(key string) error {
	for _, elem := range strings.Split(strings.ReplaceAll(key, "\\", "/"), "/") {
		switch elem {
		case "", ".", "..":
			return ErrUnsafeKey
		}
	}
	return nil
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// Keys lists the keys of a collection
func (r *Ring) Keys(collection string) ([]string, error) {
	kr, err := r.ring(collection)
	if err != nil {
		return nil, err
	}

	keys, err := kr.Keys()
	if err != nil {
		if isNotFoundError(err) {
			return []string{}, nil
		}
		return nil, wrap("keys", r.Service(collection), "", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Validate checks that at least one allowed backend exists and opens
func (r *Ring) Validate() error {
	if len(r.Backends()) == 0 {
		return wrap("validate", r.Service(probeCollection), "", keyring.ErrNoAvailImpl)
	}
	_, err := r.ring(probeCollection)
	return err
}

// Backends lists the allowed backends available on this platform
func (r *Ring) Backends() []keyring.BackendType {
	available := keyring.AvailableBackends()
	if len(r.cfg.AllowedBackends) == 0 {
		return available
	}

	var usable []keyring.BackendType
	for _, allowed := range r.cfg.AllowedBackends {
		for _, b := range available {
			if b == allowed {
				usable = append(usable, b)
				break
			}
		}
	}
	return usable
}

// Capabilities describes the keyring adapter
func (r *Ring) Capabilities() credstore.Capabilities {
	backend := "keyring"
	if len(r.cfg.AllowedBackends) == 1 {
		backend += "/" + string(r.cfg.AllowedBackends[0])
	}
	return credstore.Capabilities{
		Backend:           backend,
		NativeEnumeration: true,
		SupportsBinary:    true,
		MayPrompt:         true,
	}
}

// ring returns the cached keyring for a collection, opening it on first use
func (r *Ring) ring(collection string) (keyring.Keyring, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kr, ok := r.rings[collection]; ok {
		return kr, nil
	}

	service := r.Service(collection)
	kr, err := r.open(r.config(collection))
	if err != nil {
		return nil, wrap("open", service, "", err)
	}
	r.rings[collection] = kr
	return kr, nil
}

// config builds the keyring.Config of one collection. Backends that have
// no per-service namespace of their own get a per-collection location.
func (r *Ring) config(collection string) keyring.Config {
	service := r.Service(collection)
	cfg := keyring.Config{
		ServiceName:              service,
		AllowedBackends:          r.cfg.AllowedBackends,
		KeychainName:             r.cfg.KeychainName,
		KeychainTrustApplication: true,
		KWalletAppID:             "credstore",
		KWalletFolder:            service,
		LibSecretCollectionName:  service,
		PassPrefix:               service,
		WinCredPrefix:            service,
		FilePasswordFunc:         r.cfg.FilePasswordFunc,
	}
	if r.cfg.FileDir != "" {
		cfg.FileDir = filepath.Join(r.cfg.FileDir, collectionDir(collection))
	}
	return cfg
}

// collectionDir turns a collection name into a single safe path element
func collectionDir(collection string) string {
	escaped := url.PathEscape(collection)
	switch escaped {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return escaped
}

// Ensure Ring implements credstore.Enclave
var _ credstore.Enclave = (*Ring)(nil)
