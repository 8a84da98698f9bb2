package secure

import (
	"errors"
	"io"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed buffer is opened.
var ErrDestroyed = errors.New("secure buffer destroyed")

// SecureBuffer holds a secret encrypted in memory between the moment it is
// read (from the enclave or from stdin) and the moment it is written out.
//
// memguard.NewEnclave returns nil for empty input, so an empty secret is
// represented by a nil enclave and opens to an empty buffer.
type SecureBuffer struct {
	enclave   *memguard.Enclave
	size      int
	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer moves data into an encrypted enclave. memguard wipes
// the source slice, so callers must not reuse data afterwards.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	size := len(data)
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
		size:    size,
	}, nil
}

// ReadSecureBuffer reads r to EOF straight into locked memory and seals it.
func ReadSecureBuffer(r io.Reader) (*SecureBuffer, error) {
	locked, err := memguard.NewBufferFromEntireReader(r)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if locked == nil || locked.Size() == 0 {
		if locked != nil {
			locked.Destroy()
		}
		return &SecureBuffer{}, nil
	}
	size := locked.Size()
	return &SecureBuffer{
		enclave: locked.Seal(),
		size:    size,
	}, nil
}

// Size returns the plaintext length.
func (s *SecureBuffer) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Open decrypts the secret into a locked buffer. The caller MUST call
// Destroy on the returned buffer when done.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	secret := locked.Bytes()
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.enclave == nil {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// WriteTo decrypts the secret, writes it to w and wipes the plaintext.
func (s *SecureBuffer) WriteTo(w io.Writer) (int64, error) {
	locked, err := s.Open()
	if err != nil {
		return 0, err
	}
	defer locked.Destroy()

	n, err := w.Write(locked.Bytes())
	return int64(n), err
}

// Destroy prevents further use of the buffer. It is idempotent.
// Encrypted enclave data is safe to leave to the garbage collector;
// memguard.Purge at exit removes the session key.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.size = 0
	s.destroyed = true
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
