package enclave

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/systmms/credstore/pkg/credstore"
)

// memoryKeyringClient is an in-memory contracts.KeyringClient
type memoryKeyringClient struct {
	mu        sync.Mutex
	items     map[string]string
	available bool
	headless  bool

	// errs maps "service/account" to an error returned by every call
	errs map[string]error
}

func newMemoryKeyringClient() *memoryKeyringClient {
	return &memoryKeyringClient{
		items:     make(map[string]string),
		available: true,
		errs:      make(map[string]error),
	}
}

func (c *memoryKeyringClient) Get(service, account string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[service+"/"+account]; err != nil {
		return "", err
	}
	v, ok := c.items[service+"/"+account]
	if !ok {
		return "", gokeyring.ErrNotFound
	}
	return v, nil
}

func (c *memoryKeyringClient) Set(service, account, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[service+"/"+account]; err != nil {
		return err
	}
	c.items[service+"/"+account] = value
	return nil
}

func (c *memoryKeyringClient) Delete(service, account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[service+"/"+account]; err != nil {
		return err
	}
	if _, ok := c.items[service+"/"+account]; !ok {
		return gokeyring.ErrNotFound
	}
	delete(c.items, service+"/"+account)
	return nil
}

func (c *memoryKeyringClient) IsAvailable() bool { return c.available }
func (c *memoryKeyringClient) IsHeadless() bool  { return c.headless }

func TestOSKeyringContract(t *testing.T) {
	credstore.RunContractTests(t, credstore.ContractTest{
		CreateEnclave: func(t *testing.T) credstore.Enclave {
			return NewOSKeyringWithClient("test", newMemoryKeyringClient())
		},
	})
}

// go-keyring's mock provider is process global, so these tests do not
// run in parallel and use distinct service prefixes.
func TestOSKeyringWithGoKeyringMock(t *testing.T) {
	gokeyring.MockInit()

	credstore.RunContractTests(t, credstore.ContractTest{
		CreateEnclave: func(t *testing.T) credstore.Enclave {
			return NewOSKeyringWithClient("mock."+t.Name(), &mockPlatformClient{})
		},
	})
}

// mockPlatformClient forwards to go-keyring, which MockInit has pointed
// at its in-memory provider
type mockPlatformClient struct {
	goKeyring
}

func (mockPlatformClient) IsAvailable() bool { return true }
func (mockPlatformClient) IsHeadless() bool  { return true }

func TestOSKeyringService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix     string
		collection string
		want       string
	}{
		{prefix: "credstore", collection: "default", want: "credstore.default"},
		{prefix: "credstore.", collection: "work", want: "credstore.work"},
		{prefix: "", collection: "work", want: "work"},
		{prefix: "credstore", collection: "team:prod", want: "credstore.team%3Aprod"},
	}

	for _, tt := range tests {
		o := NewOSKeyringWithClient(tt.prefix, newMemoryKeyringClient())
		assert.Equal(t, tt.want, o.Service(tt.collection))
	}
}

func TestOSKeyringColonCollectionsDoNotCollide(t *testing.T) {
	t.Parallel()

	// Windows stores go-keyring entries under "service:account"
	client := newMemoryKeyringClient()
	o := NewOSKeyringWithClient("credstore", client)

	require.NoError(t, o.Set("team:prod", "token", []byte("a")))
	require.NoError(t, o.Set("team", "prod:token", []byte("b")))

	targets := make(map[string]bool)
	for item := range client.items {
		service, account, _ := strings.Cut(item, "/")
		targets[service+":"+account] = true
	}
	assert.Len(t, targets, len(client.items))

	got, err := o.Get("team:prod", "token")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
}

func TestOSKeyringMaintainsIndex(t *testing.T) {
	t.Parallel()

	client := newMemoryKeyringClient()
	o := NewOSKeyringWithClient("credstore", client)

	require.NoError(t, o.Set("work", "b", []byte("2")))
	require.NoError(t, o.Set("work", "a", []byte("1")))
	require.NoError(t, o.Set("work", "a", []byte("1 again")))

	assert.JSONEq(t, `["a","b"]`, client.items["credstore.work/"+IndexAccount])

	require.NoError(t, o.Remove("work", "a"))
	require.NoError(t, o.Remove("work", "b"))

	_, exists := client.items["credstore.work/"+IndexAccount]
	assert.False(t, exists, "index should be deleted with the last key")
}

func TestOSKeyringRemoveDropsStaleIndexEntry(t *testing.T) {
	t.Parallel()

	client := newMemoryKeyringClient()
	o := NewOSKeyringWithClient("credstore", client)

	require.NoError(t, o.Set("work", "token", []byte("v")))
	// Deleted behind our back by another tool
	delete(client.items, "credstore.work/token")

	err := o.Remove("work", "token")
	require.Error(t, err)
	assert.True(t, credstore.IsNotFound(err))

	keys, err := o.Keys("work")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOSKeyringValueEncoding(t *testing.T) {
	t.Parallel()

	client := newMemoryKeyringClient()
	o := NewOSKeyringWithClient("credstore", client)

	require.NoError(t, o.Set("c", "k", []byte("abc")))
	assert.Equal(t, "b64:YWJj", client.items["credstore.c/k"])

	// Entries written by other tools are returned verbatim
	client.items["credstore.c/foreign"] = "plain text"
	got, err := o.Get("c", "foreign")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain text"), got)

	client.items["credstore.c/broken"] = "b64:not base64!"
	_, err = o.Get("c", "broken")
	require.Error(t, err)
	assert.Equal(t, credstore.CodeStorageUnavailable, credstore.CodeOf(err))
}

func TestOSKeyringReservedKey(t *testing.T) {
	t.Parallel()

	o := NewOSKeyringWithClient("credstore", newMemoryKeyringClient())

	_, err := o.Get("c", IndexAccount)
	assert.ErrorIs(t, err, credstore.ErrInvalidArgument)
	assert.ErrorIs(t, o.Set("c", IndexAccount, []byte("x")), credstore.ErrInvalidArgument)
	assert.ErrorIs(t, o.Remove("c", IndexAccount), credstore.ErrInvalidArgument)
}

type warnRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (w *warnRecorder) Warn(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestOSKeyringCorruptIndexIsRebuilt(t *testing.T) {
	t.Parallel()

	index := "credstore.c/" + IndexAccount

	newCorrupt := func() (*OSKeyring, *memoryKeyringClient, *warnRecorder) {
		client := newMemoryKeyringClient()
		client.items[index] = "{not json"
		client.items["credstore.c/k"] = "b64:b2xk"
		warnings := &warnRecorder{}
		o := NewOSKeyringWithClient("credstore", client)
		o.SetLogger(warnings)
		return o, client, warnings
	}

	t.Run("keys", func(t *testing.T) {
		t.Parallel()
		o, client, warnings := newCorrupt()

		keys, err := o.Keys("c")
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.NotContains(t, client.items, index, "corrupt index should be reset")
		require.Len(t, warnings.lines, 1)
		assert.Contains(t, warnings.lines[0], "collection index is corrupt")
	})

	t.Run("set", func(t *testing.T) {
		t.Parallel()
		o, client, warnings := newCorrupt()

		require.NoError(t, o.Set("c", "k", []byte("new")))
		assert.Equal(t, "b64:bmV3", client.items["credstore.c/k"])
		assert.JSONEq(t, `["k"]`, client.items[index])
		assert.Len(t, warnings.lines, 1)

		keys, err := o.Keys("c")
		require.NoError(t, err)
		assert.Equal(t, []string{"k"}, keys)
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		o, client, _ := newCorrupt()

		require.NoError(t, o.Remove("c", "k"))
		assert.NotContains(t, client.items, "credstore.c/k")
		assert.NotContains(t, client.items, index)
	})

	t.Run("without logger", func(t *testing.T) {
		t.Parallel()
		client := newMemoryKeyringClient()
		client.items[index] = "[1, 2"
		o := NewOSKeyringWithClient("credstore", client)

		keys, err := o.Keys("c")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestOSKeyringIndexFailureLeavesEntryUntouched(t *testing.T) {
	t.Parallel()

	client := newMemoryKeyringClient()
	client.items["credstore.c/k"] = "b64:b2xk"
	client.errs["credstore.c/"+IndexAccount] = errors.New("User interaction is not allowed.")
	o := NewOSKeyringWithClient("credstore", client)

	err := o.Set("c", "k", []byte("new"))
	require.Error(t, err)
	assert.Equal(t, credstore.CodeAccessDenied, credstore.CodeOf(err))
	assert.Equal(t, "b64:b2xk", client.items["credstore.c/k"], "value must not change when the index cannot be read")

	err = o.Remove("c", "k")
	require.Error(t, err)
	assert.Equal(t, credstore.CodeAccessDenied, credstore.CodeOf(err))
	assert.Contains(t, client.items, "credstore.c/k", "entry must survive a failed remove")
}

// Runs against go-keyring's own mock provider, which is process global.
func TestOSKeyringRecoversCorruptIndexWithGoKeyringMock(t *testing.T) {
	gokeyring.MockInit()

	o := NewOSKeyringWithClient("recover", &mockPlatformClient{})
	o.SetLogger(&warnRecorder{})
	require.NoError(t, gokeyring.Set("recover.c", IndexAccount, "not-json"))

	require.NoError(t, o.Set("c", "k", []byte("new")))
	got, err := o.Get("c", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	keys, err := o.Keys("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, o.Remove("c", "k"))
	_, err = gokeyring.Get("recover.c", IndexAccount)
	assert.ErrorIs(t, err, gokeyring.ErrNotFound)
}

func TestOSKeyringErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want credstore.Code
	}{
		{name: "user cancelled prompt", err: errors.New("The user canceled the operation."), want: credstore.CodeAccessDenied},
		{name: "locked keychain", err: errors.New("User interaction is not allowed."), want: credstore.CodeAccessDenied},
		{name: "dbus down", err: errors.New("The name org.freedesktop.secrets was not provided by any .service files"), want: credstore.CodeStorageUnavailable},
		{name: "too big", err: gokeyring.ErrSetDataTooBig, want: credstore.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newMemoryKeyringClient()
			client.errs["credstore.c/k"] = tt.err
			o := NewOSKeyringWithClient("credstore", client)

			err := o.Set("c", "k", []byte("v"))
			require.Error(t, err)
			assert.Equal(t, tt.want, credstore.CodeOf(err))
			assert.ErrorIs(t, err, tt.err)

			var encErr *EnclaveError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, "set", encErr.Op)
			assert.Equal(t, "credstore.c", encErr.Service)
			assert.Equal(t, "k", encErr.Account)
		})
	}
}

func TestOSKeyringValidate(t *testing.T) {
	t.Parallel()

	t.Run("available", func(t *testing.T) {
		o := NewOSKeyringWithClient("credstore", newMemoryKeyringClient())
		assert.NoError(t, o.Validate())
	})

	t.Run("unsupported platform", func(t *testing.T) {
		client := newMemoryKeyringClient()
		client.available = false
		o := NewOSKeyringWithClient("credstore", client)

		err := o.Validate()
		assert.ErrorIs(t, err, ErrUnsupportedPlatform)
		assert.Equal(t, credstore.CodeStorageUnavailable, credstore.CodeOf(err))
	})

	t.Run("probe fails", func(t *testing.T) {
		client := newMemoryKeyringClient()
		client.errs[fmt.Sprintf("credstore.%s/%s", probeCollection, IndexAccount)] = errors.New("access denied")
		o := NewOSKeyringWithClient("credstore", client)

		err := o.Validate()
		assert.Equal(t, credstore.CodeAccessDenied, credstore.CodeOf(err))
	})
}

func TestOSKeyringHeadlessAndCapabilities(t *testing.T) {
	t.Parallel()

	client := newMemoryKeyringClient()
	client.headless = true
	o := NewOSKeyringWithClient("credstore", client)

	assert.True(t, o.Headless())

	caps := o.Capabilities()
	assert.Equal(t, "os", caps.Backend)
	assert.False(t, caps.NativeEnumeration)
	assert.True(t, caps.SupportsBinary)
}
