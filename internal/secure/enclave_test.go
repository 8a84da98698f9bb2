package secure

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewSecureBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "text secret", data: []byte("my-secret-password")},
		{name: "empty secret", data: []byte{}},
		{name: "binary secret", data: []byte{0x00, 0xFF, 0x10, 0x20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expected := append([]byte(nil), tt.data...)

			buf, err := NewSecureBuffer(tt.data)
			if err != nil {
				t.Fatalf("NewSecureBuffer() error = %v", err)
			}
			defer buf.Destroy()

			if buf.Size() != len(expected) {
				t.Errorf("Size() = %d, want %d", buf.Size(), len(expected))
			}

			locked, err := buf.Open()
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer locked.Destroy()

			if !bytes.Equal(locked.Bytes(), expected) && !(len(expected) == 0 && len(locked.Bytes()) == 0) {
				t.Errorf("Open() returned %v, want %v", locked.Bytes(), expected)
			}
		})
	}
}

func TestNewSecureBuffer_WipesSource(t *testing.T) {
	t.Parallel()

	source := []byte("wipe-me-please")
	buf, err := NewSecureBuffer(source)
	if err != nil {
		t.Fatalf("NewSecureBuffer() error = %v", err)
	}
	defer buf.Destroy()

	for i, b := range source {
		if b != 0 {
			t.Fatalf("source byte %d not wiped: %q", i, source)
		}
	}
}

func TestReadSecureBuffer(t *testing.T) {
	t.Parallel()

	t.Run("reads to EOF", func(t *testing.T) {
		input := strings.Repeat("x", 10000) + "\n"
		buf, err := ReadSecureBuffer(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadSecureBuffer() error = %v", err)
		}
		defer buf.Destroy()

		if buf.Size() != len(input) {
			t.Errorf("Size() = %d, want %d", buf.Size(), len(input))
		}

		var out bytes.Buffer
		n, err := buf.WriteTo(&out)
		if err != nil {
			t.Fatalf("WriteTo() error = %v", err)
		}
		if n != int64(len(input)) || out.String() != input {
			t.Errorf("WriteTo() wrote %d bytes, want %d", n, len(input))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		buf, err := ReadSecureBuffer(strings.NewReader(""))
		if err != nil {
			t.Fatalf("ReadSecureBuffer() error = %v", err)
		}
		defer buf.Destroy()

		if buf.Size() != 0 {
			t.Errorf("Size() = %d, want 0", buf.Size())
		}

		var out bytes.Buffer
		if _, err := buf.WriteTo(&out); err != nil {
			t.Fatalf("WriteTo() error = %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("WriteTo() wrote %q, want nothing", out.String())
		}
	})
}

func TestSecureBuffer_MultipleOpens(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBuffer([]byte("reusable"))
	if err != nil {
		t.Fatalf("NewSecureBuffer() error = %v", err)
	}
	defer buf.Destroy()

	for i := 0; i < 3; i++ {
		locked, err := buf.Open()
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i, err)
		}
		if string(locked.Bytes()) != "reusable" {
			t.Errorf("Open() #%d = %q", i, locked.Bytes())
		}
		locked.Destroy()
	}
}

func TestSecureBuffer_Destroy(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBuffer([]byte("short-lived"))
	if err != nil {
		t.Fatalf("NewSecureBuffer() error = %v", err)
	}

	buf.Destroy()
	buf.Destroy() // idempotent

	if buf.Size() != 0 {
		t.Errorf("Size() after Destroy = %d, want 0", buf.Size())
	}
	if _, err := buf.Open(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Open() after Destroy error = %v, want ErrDestroyed", err)
	}
	if _, err := buf.WriteTo(&bytes.Buffer{}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("WriteTo() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestWipe(t *testing.T) {
	t.Parallel()

	b := []byte("plaintext")
	Wipe(b)
	if !bytes.Equal(b, make([]byte, len("plaintext"))) {
		t.Errorf("Wipe() left %q", b)
	}
}

func TestSecureBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureBuffer([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("NewSecureBuffer() error = %v", err)
	}
	defer buf.Destroy()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out bytes.Buffer
			if _, err := buf.WriteTo(&out); err != nil {
				t.Errorf("WriteTo() error = %v", err)
				return
			}
			if out.String() != "shared-secret" {
				t.Errorf("WriteTo() = %q", out.String())
			}
		}()
	}
	wg.Wait()
}
