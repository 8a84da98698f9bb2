// Package contracts defines interfaces for enclave client abstractions.
// These interfaces enable dependency injection for testing.
package contracts

// KeyringClient abstracts the OS keyring calls made by the os adapter
type KeyringClient interface {
	// Get retrieves the value stored for service/account
	Get(service, account string) (string, error)

	// Set creates or overwrites the value for service/account
	Set(service, account, value string) error

	// Delete removes service/account
	Delete(service, account string) error

	// IsAvailable returns true if a keyring is available on this platform
	IsAvailable() bool

	// IsHeadless returns true if running in headless environment
	IsHeadless() bool
}
