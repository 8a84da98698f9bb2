package credstore

import (
	"context"
	"sort"
	"time"
)

// Store is a namespaced credential store.
//
// All methods accept an empty collection to address the default one.
// Failures are returned as *Error values; use CodeOf or the Is helpers
// to branch on them.
type Store interface {
	// Get returns the secret stored under (collection, key).
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// Store creates or overwrites an entry.
	Store(ctx context.Context, collection, key string, secret []byte) error

	// Delete removes an entry. Absent entries are not an error unless
	// strict mode is requested.
	Delete(ctx context.Context, collection, key string, opts ...DeleteOption) error

	// DeleteCollection removes every entry of a collection and returns
	// how many were removed.
	DeleteCollection(ctx context.Context, collection string) (int, error)

	// Keys lists the key names of a collection in sorted order.
	Keys(ctx context.Context, collection string) ([]string, error)
}

// Logger receives debug output. Secret values are never passed to it.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Observer is notified after every operation.
type Observer interface {
	ObserveOperation(op string, code Code, elapsed time.Duration)
	ObserveCollectionDeleted(collection string, removed int)
}

// Options configures a Keychain.
type Options struct {
	// DefaultCollection replaces an empty collection argument.
	// Defaults to DefaultCollection.
	DefaultCollection string

	// StrictDelete makes Delete report ErrNotFound for absent entries.
	StrictDelete bool

	Logger   Logger
	Observer Observer
}

// DeleteOption adjusts a single Delete call.
type DeleteOption func(*deleteOptions)

type deleteOptions struct {
	strict bool
}

// Strict makes a Delete call fail with ErrNotFound when the entry is absent.
func Strict() DeleteOption {
	return func(o *deleteOptions) {
		o.strict = true
	}
}

// Keychain implements Store on top of an Enclave.
//
// The context passed to each method is checked before the enclave is
// called. Enclave calls themselves are not interruptible: a pending
// unlock or biometric prompt runs to completion or failure.
type Keychain struct {
	enclave Enclave
	opts    Options
}

var _ Store = (*Keychain)(nil)

// New creates a Keychain backed by enclave.
func New(enclave Enclave, opts Options) *Keychain {
	if opts.DefaultCollection == "" {
		opts.DefaultCollection = DefaultCollection
	}
	return &Keychain{
		enclave: enclave,
		opts:    opts,
	}
}

// Enclave returns the adapter this store dispatches to.
func (k *Keychain) Enclave() Enclave {
	return k.enclave
}

// Get returns the secret stored under (collection, key).
func (k *Keychain) Get(ctx context.Context, collection, key string) (secret []byte, err error) {
	const op = "get"
	start := time.Now()
	defer func() { k.observe(op, start, err) }()

	c, err := k.address(ctx, op, collection, key)
	if err != nil {
		return nil, err
	}

	secret, err = k.enclave.Get(c, key)
	if err != nil {
		return nil, k.fail(op, c, key, err)
	}

	k.debug("get %s/%s: %d bytes", c, key, len(secret))
	return secret, nil
}

// Store creates or overwrites the entry (collection, key).
func (k *Keychain) Store(ctx context.Context, collection, key string, secret []byte) (err error) {
	const op = "store"
	start := time.Now()
	defer func() { k.observe(op, start, err) }()

	c, err := k.address(ctx, op, collection, key)
	if err != nil {
		return err
	}

	if err = k.enclave.Set(c, key, secret); err != nil {
		return k.fail(op, c, key, err)
	}

	k.debug("stored %s/%s: %d bytes", c, key, len(secret))
	return nil
}

// Delete removes the entry (collection, key).
func (k *Keychain) Delete(ctx context.Context, collection, key string, opts ...DeleteOption) (err error) {
	const op = "delete"
	start := time.Now()
	defer func() { k.observe(op, start, err) }()

	o := deleteOptions{strict: k.opts.StrictDelete}
	for _, opt := range opts {
		opt(&o)
	}

	c, err := k.address(ctx, op, collection, key)
	if err != nil {
		return err
	}

	if err = k.enclave.Remove(c, key); err != nil {
		if IsNotFound(err) && !o.strict {
			k.debug("delete %s/%s: already absent", c, key)
			return nil
		}
		return k.fail(op, c, key, err)
	}

	k.debug("deleted %s/%s", c, key)
	return nil
}

// DeleteCollection removes every entry of collection. Entries that vanish
// while the collection is being cleared are not counted. If removal stops
// part way, the number removed so far is returned along with the error.
func (k *Keychain) DeleteCollection(ctx context.Context, collection string) (removed int, err error) {
	const op = "delete-collection"
	start := time.Now()
	defer func() { k.observe(op, start, err) }()

	c, err := k.collection(ctx, op, collection)
	if err != nil {
		return 0, err
	}
	defer func() {
		if k.opts.Observer != nil {
			k.opts.Observer.ObserveCollectionDeleted(c, removed)
		}
	}()

	keys, err := k.enclave.Keys(c)
	if err != nil {
		return 0, k.fail(op, c, "", err)
	}

	for _, key := range keys {
		if rmErr := k.enclave.Remove(c, key); rmErr != nil {
			if IsNotFound(rmErr) {
				continue
			}
			return removed, k.fail(op, c, key, rmErr)
		}
		removed++
	}

	k.debug("deleted collection %s: %d entries", c, removed)
	return removed, nil
}

// Keys lists the key names of collection in sorted order.
func (k *Keychain) Keys(ctx context.Context, collection string) (keys []string, err error) {
	const op = "keys"
	start := time.Now()
	defer func() { k.observe(op, start, err) }()

	c, err := k.collection(ctx, op, collection)
	if err != nil {
		return nil, err
	}

	keys, err = k.enclave.Keys(c)
	if err != nil {
		return nil, k.fail(op, c, "", err)
	}

	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	return sorted, nil
}

// address validates a (collection, key) pair and returns the normalized
// collection.
func (k *Keychain) address(ctx context.Context, op, collection, key string) (string, error) {
	c, err := k.collection(ctx, op, collection)
	if err != nil {
		return "", err
	}
	if err := ValidateKey(key); err != nil {
		return "", &Error{Op: op, Collection: c, Key: key, Err: err}
	}
	return c, nil
}

func (k *Keychain) collection(ctx context.Context, op, collection string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: op, Collection: collection, Err: Wrap(ErrStorageUnavailable, err)}
	}
	c, err := NormalizeCollection(collection, k.opts.DefaultCollection)
	if err != nil {
		return "", &Error{Op: op, Collection: collection, Err: err}
	}
	return c, nil
}

// fail wraps an enclave error, making sure it carries a sentinel.
func (k *Keychain) fail(op, collection, key string, err error) error {
	if CodeOf(err) == CodeStorageUnavailable {
		err = Wrap(ErrStorageUnavailable, err)
	}
	k.debug("%s %s/%s failed: %v", op, collection, key, err)
	return &Error{Op: op, Collection: collection, Key: key, Err: err}
}

func (k *Keychain) observe(op string, start time.Time, err error) {
	if k.opts.Observer == nil {
		return
	}
	k.opts.Observer.ObserveOperation(op, CodeOf(err), time.Since(start))
}

func (k *Keychain) debug(format string, args ...interface{}) {
	if k.opts.Logger == nil {
		return
	}
	k.opts.Logger.Debug(format, args...)
}
