package enclave

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/credstore/pkg/credstore"
)

// arrayOpener hands out one ArrayKeyring per service name and records
// the configs it was asked to open
type arrayOpener struct {
	mu      sync.Mutex
	rings   map[string]*keyring.ArrayKeyring
	configs []keyring.Config
	err     error
}

func newArrayOpener() *arrayOpener {
	return &arrayOpener{rings: make(map[string]*keyring.ArrayKeyring)}
}

func (o *arrayOpener) open(cfg keyring.Config) (keyring.Keyring, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.configs = append(o.configs, cfg)
	if o.err != nil {
		return nil, o.err
	}
	kr, ok := o.rings[cfg.ServiceName]
	if !ok {
		kr = keyring.NewArrayKeyring(nil)
		o.rings[cfg.ServiceName] = kr
	}
	return kr, nil
}

func TestRingContract(t *testing.T) {
	credstore.RunContractTests(t, credstore.ContractTest{
		CreateEnclave: func(t *testing.T) credstore.Enclave {
			return NewRingWithOpener(RingConfig{ServicePrefix: "test"}, newArrayOpener().open)
		},
	})
}

func TestRingFileBackendContract(t *testing.T) {
	if !backendAvailable(keyring.FileBackend) {
		t.Skip("file backend not available")
	}

	credstore.RunContractTests(t, credstore.ContractTest{
		CreateEnclave: func(t *testing.T) credstore.Enclave {
			return NewRing(RingConfig{
				ServicePrefix:    "test",
				AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
				FileDir:          t.TempDir(),
				FilePasswordFunc: keyring.FixedStringPrompt("test-password"),
			})
		},
	})
}

func backendAvailable(b keyring.BackendType) bool {
	for _, available := range keyring.AvailableBackends() {
		if available == b {
			return true
		}
	}
	return false
}

func TestRingOpensOneKeyringPerCollection(t *testing.T) {
	t.Parallel()

	opener := newArrayOpener()
	r := NewRingWithOpener(RingConfig{ServicePrefix: "credstore.", FileDir: "/tmp/rings"}, opener.open)

	require.NoError(t, r.Set("work", "k", []byte("1")))
	require.NoError(t, r.Set("work", "k2", []byte("2")))
	require.NoError(t, r.Set("home", "k", []byte("3")))

	require.Len(t, opener.configs, 2, "handles should be cached per collection")

	work := opener.configs[0]
	assert.Equal(t, "credstore.work", work.ServiceName)
	assert.Equal(t, "credstore.work", work.LibSecretCollectionName)
	assert.Equal(t, "credstore.work", work.KWalletFolder)
	assert.Equal(t, "credstore.work", work.PassPrefix)
	assert.Equal(t, filepath.Join("/tmp/rings", "work"), work.FileDir)

	assert.Equal(t, "credstore.home", opener.configs[1].ServiceName)

	item, err := opener.rings["credstore.work"].Get("k")
	require.NoError(t, err)
	assert.Equal(t, "credstore.work k", item.Label)
}

func TestRingRemoveMissing(t *testing.T) {
	t.Parallel()

	r := NewRingWithOpener(RingConfig{}, newArrayOpener().open)

	err := r.Remove("c", "missing")
	require.Error(t, err)
	assert.True(t, credstore.IsNotFound(err))

	require.NoError(t, r.Set("c", "present", []byte("v")))
	require.NoError(t, r.Remove("c", "present"))

	_, err = r.Get("c", "present")
	assert.True(t, credstore.IsNotFound(err))
}

func TestRingOpenFailure(t *testing.T) {
	t.Parallel()

	opener := newArrayOpener()
	opener.err = keyring.ErrNoAvailImpl
	r := NewRingWithOpener(RingConfig{ServicePrefix: "credstore"}, opener.open)

	_, err := r.Get("c", "k")
	require.Error(t, err)
	assert.Equal(t, credstore.CodeStorageUnavailable, credstore.CodeOf(err))

	var encErr *EnclaveError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "open", encErr.Op)
	assert.Equal(t, "credstore.c", encErr.Service)
}

func TestRingPasswordRequired(t *testing.T) {
	t.Parallel()

	r := NewRing(RingConfig{
		AllowedBackends: []keyring.BackendType{keyring.FileBackend},
		FileDir:         t.TempDir(),
		FilePasswordFunc: func(string) (string, error) {
			return "", ErrPasswordRequired
		},
	})

	err := r.Set("c", "k", []byte("v"))
	require.Error(t, err)
	assert.True(t, credstore.IsAccessDenied(err))
}

func TestRingFileBackendWrongPassword(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	open := func(password string) *Ring {
		return NewRing(RingConfig{
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          dir,
			FilePasswordFunc: keyring.FixedStringPrompt(password),
		})
	}

	require.NoError(t, open("right").Set("c", "k", []byte("v")))

	_, err := open("wrong").Get("c", "k")
	require.Error(t, err)
	assert.True(t, credstore.IsAccessDenied(err))
}

func TestRingCollectionDir(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"work":       "work",
		"a/b":        "a%2Fb",
		".":          "%2E",
		"..":         "%2E%2E",
		"with space": "with%20space",
	}
	for collection, want := range tests {
		assert.Equal(t, want, collectionDir(collection), "collection %q", collection)
	}

	dir := t.TempDir()
	r := NewRing(RingConfig{
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          dir,
		FilePasswordFunc: keyring.FixedStringPrompt("pw"),
	})
	require.NoError(t, r.Set("../escape", "k", []byte("v")))

	_, err := os.Stat(filepath.Join(dir, "..%2Fescape"))
	assert.NoError(t, err, "collection must stay inside the file directory")
}

func TestRingCapabilities(t *testing.T) {
	t.Parallel()

	r := NewRingWithOpener(RingConfig{}, newArrayOpener().open)
	assert.Equal(t, "keyring", r.Capabilities().Backend)
	assert.True(t, r.Capabilities().NativeEnumeration)

	file := NewRingWithOpener(RingConfig{AllowedBackends: []keyring.BackendType{keyring.FileBackend}}, newArrayOpener().open)
	assert.Equal(t, "keyring/file", file.Capabilities().Backend)
}

func TestRingValidateNoBackend(t *testing.T) {
	t.Parallel()

	r := NewRingWithOpener(RingConfig{
		AllowedBackends: []keyring.BackendType{keyring.BackendType("does-not-exist")},
	}, newArrayOpener().open)

	assert.Empty(t, r.Backends())

	err := r.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, keyring.ErrNoAvailImpl))
	assert.Equal(t, credstore.CodeStorageUnavailable, credstore.CodeOf(err))
}

func TestRingRejectsPathKeys(t *testing.T) {
	t.Parallel()

	r := NewRing(RingConfig{
		ServicePrefix:    "credstore",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: keyring.FixedStringPrompt("pw"),
	})

	unsafe := []string{".", "..", "../credstore.other/x", "a/../b", "a//b", "/x", "x/", `..\x`}
	for _, key := range unsafe {
		_, err := r.Get("c", key)
		assert.ErrorIs(t, err, credstore.ErrInvalidArgument, "get %q", key)
		assert.ErrorIs(t, err, ErrUnsafeKey, "get %q", key)

		assert.ErrorIs(t, r.Set("c", key, []byte("v")), credstore.ErrInvalidArgument, "set %q", key)
		assert.ErrorIs(t, r.Remove("c", key), credstore.ErrInvalidArgument, "remove %q", key)
	}

	for _, key := range []string{"dots.and/slashes", "...", ".hidden", "a.b"} {
		require.NoError(t, r.Set("c", key, []byte("v")), "set %q", key)
		got, err := r.Get("c", key)
		require.NoError(t, err, "get %q", key)
		assert.Equal(t, []byte("v"), got)
	}

	keys, err := r.Keys("c")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dots.and/slashes", "...", ".hidden", "a.b"}, keys)
}

func TestRingServiceEscapesSeparators(t *testing.T) {
	t.Parallel()

	opener := newArrayOpener()
	r := NewRingWithOpener(RingConfig{ServicePrefix: "credstore"}, opener.open)

	require.NoError(t, r.Set("team:prod", "token", []byte("a")))
	require.NoError(t, r.Set("team", "prod:token", []byte("b")))
	require.NoError(t, r.Set("a/b", "x", []byte("c")))

	require.Len(t, opener.configs, 3)
	assert.Equal(t, "credstore.team%3Aprod", opener.configs[0].ServiceName)
	assert.Equal(t, "credstore.team%3Aprod", opener.configs[0].WinCredPrefix)
	assert.Equal(t, "credstore.a%2Fb", opener.configs[2].PassPrefix)

	keys, err := r.Keys("team")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod:token"}, keys)
}
