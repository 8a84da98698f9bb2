//go:build linux

package enclave

import (
	"os"

	"github.com/systmms/credstore/internal/enclave/contracts"
)

// linuxKeyringClient implements KeyringClient for the Secret Service
type linuxKeyringClient struct {
	goKeyring
}

// newPlatformKeyringClient creates the platform-specific keyring client
func newPlatformKeyringClient() contracts.KeyringClient {
	return &linuxKeyringClient{}
}

// IsAvailable returns true if a session bus is reachable. The Secret
// Service (gnome-keyring, KWallet, KeePassXC) is activated over D-Bus.
func (c *linuxKeyringClient) IsAvailable() bool {
	return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" || hasDisplay()
}

// IsHeadless returns true if unlock prompts cannot be shown
func (c *linuxKeyringClient) IsHeadless() bool {
	if os.Getenv("SSH_TTY") != "" || os.Getenv("CI") != "" {
		return true
	}
	return !hasDisplay()
}

func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Ensure linuxKeyringClient implements contracts.KeyringClient
var _ contracts.KeyringClient = (*linuxKeyringClient)(nil)
