//go:build darwin

package enclave

import (
	"os"

	"github.com/systmms/credstore/internal/enclave/contracts"
)

// darwinKeyringClient implements KeyringClient for the macOS Keychain
type darwinKeyringClient struct {
	goKeyring
}

// newPlatformKeyringClient creates the platform-specific keyring client
func newPlatformKeyringClient() contracts.KeyringClient {
	return &darwinKeyringClient{}
}

// IsAvailable returns true since the login keychain always exists on macOS
func (c *darwinKeyringClient) IsAvailable() bool {
	return true
}

// IsHeadless returns true if unlock prompts cannot be shown
func (c *darwinKeyringClient) IsHeadless() bool {
	return os.Getenv("SSH_TTY") != "" || os.Getenv("CI") != ""
}

// Ensure darwinKeyringClient implements contracts.KeyringClient
var _ contracts.KeyringClient = (*darwinKeyringClient)(nil)
