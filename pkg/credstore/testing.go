package credstore

import (
	"bytes"
	"errors"
	"sort"
	"testing"
	"time"
)

// ContractTest defines the behaviour every Enclave adapter must show.
type ContractTest struct {
	// CreateEnclave returns a fresh, empty enclave for one subtest.
	CreateEnclave func(t *testing.T) Enclave

	// SkipBinary skips the arbitrary-bytes round trip for adapters that
	// report SupportsBinary=false.
	SkipBinary bool
}

// RunContractTests runs the standard enclave contract test suite.
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Capabilities", func(t *testing.T) {
			testEnclaveCapabilities(t, contract)
		})

		t.Run("Validate", func(t *testing.T) {
			testEnclaveValidate(t, contract)
		})

		t.Run("SetGet", func(t *testing.T) {
			testEnclaveSetGet(t, contract)
		})

		if !contract.SkipBinary {
			t.Run("Binary", func(t *testing.T) {
				testEnclaveBinary(t, contract)
			})
		}

		t.Run("GetNotFound", func(t *testing.T) {
			testEnclaveGetNotFound(t, contract)
		})

		t.Run("RemoveNotFound", func(t *testing.T) {
			testEnclaveRemoveNotFound(t, contract)
		})

		t.Run("Keys", func(t *testing.T) {
			testEnclaveKeys(t, contract)
		})

		t.Run("CollectionIsolation", func(t *testing.T) {
			testEnclaveCollectionIsolation(t, contract)
		})
	})
}

func testEnclaveCapabilities(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	caps := e.Capabilities()
	if caps.Backend == "" {
		t.Error("Enclave.Capabilities() returned empty backend name")
	}
	if caps != e.Capabilities() {
		t.Error("Enclave.Capabilities() not consistent between calls")
	}
}

func testEnclaveValidate(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	done := make(chan error, 1)
	go func() {
		done <- e.Validate()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Enclave.Validate() failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Enclave.Validate() timed out after 5 seconds")
	}
}

func testEnclaveSetGet(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	if err := e.Set("contract", "token", []byte("first")); err != nil {
		t.Fatalf("Enclave.Set() failed: %v", err)
	}
	if err := e.Set("contract", "token", []byte("second")); err != nil {
		t.Fatalf("Enclave.Set() overwrite failed: %v", err)
	}

	got, err := e.Get("contract", "token")
	if err != nil {
		t.Fatalf("Enclave.Get() failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Enclave.Get() = %q, want %q", got, "second")
	}
}

func testEnclaveBinary(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	want := []byte{0x00, 0xff, 0x10, '\n', 0x80}
	if err := e.Set("contract", "blob", want); err != nil {
		t.Fatalf("Enclave.Set() failed: %v", err)
	}

	got, err := e.Get("contract", "blob")
	if err != nil {
		t.Fatalf("Enclave.Get() failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Enclave.Get() = %v, want %v", got, want)
	}
}

func testEnclaveGetNotFound(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	_, err := e.Get("contract", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Enclave.Get() on missing entry: got %v, want ErrNotFound", err)
	}
}

func testEnclaveRemoveNotFound(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	err := e.Remove("contract", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Enclave.Remove() on missing entry: got %v, want ErrNotFound", err)
	}
}

func testEnclaveKeys(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	keys, err := e.Keys("never-written")
	if err != nil {
		t.Fatalf("Enclave.Keys() on unknown collection failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Enclave.Keys() on unknown collection = %v, want empty", keys)
	}

	for _, k := range []string{"b", "a", "c"} {
		if err := e.Set("listed", k, []byte(k)); err != nil {
			t.Fatalf("Enclave.Set(%q) failed: %v", k, err)
		}
	}
	if err := e.Remove("listed", "c"); err != nil {
		t.Fatalf("Enclave.Remove() failed: %v", err)
	}

	keys, err = e.Keys("listed")
	if err != nil {
		t.Fatalf("Enclave.Keys() failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Enclave.Keys() = %v, want [a b]", keys)
	}
}

func testEnclaveCollectionIsolation(t *testing.T, contract ContractTest) {
	e := contract.CreateEnclave(t)

	if err := e.Set("one", "shared", []byte("from-one")); err != nil {
		t.Fatalf("Enclave.Set() failed: %v", err)
	}
	if err := e.Set("two", "shared", []byte("from-two")); err != nil {
		t.Fatalf("Enclave.Set() failed: %v", err)
	}

	got, err := e.Get("one", "shared")
	if err != nil {
		t.Fatalf("Enclave.Get() failed: %v", err)
	}
	if string(got) != "from-one" {
		t.Errorf("Enclave.Get(one) = %q, want %q", got, "from-one")
	}

	if err := e.Remove("two", "shared"); err != nil {
		t.Fatalf("Enclave.Remove() failed: %v", err)
	}
	if _, err := e.Get("one", "shared"); err != nil {
		t.Errorf("removing from collection two affected collection one: %v", err)
	}
}
