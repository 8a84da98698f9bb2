//go:build windows

package enclave

import (
	"os"

	"github.com/systmms/credstore/internal/enclave/contracts"
)

// windowsKeyringClient implements KeyringClient for the Credential Manager
type windowsKeyringClient struct {
	goKeyring
}

// newPlatformKeyringClient creates the platform-specific keyring client
func newPlatformKeyringClient() contracts.KeyringClient {
	return &windowsKeyringClient{}
}

// IsAvailable returns true; the Credential Manager needs no session
func (c *windowsKeyringClient) IsAvailable() bool {
	return true
}

// IsHeadless returns true in CI, where no interactive logon exists
func (c *windowsKeyringClient) IsHeadless() bool {
	return os.Getenv("CI") != ""
}

// Ensure windowsKeyringClient implements contracts.KeyringClient
var _ contracts.KeyringClient = (*windowsKeyringClient)(nil)
