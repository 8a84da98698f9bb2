//go:build !darwin && !linux && !windows

package enclave

import (
	"github.com/systmms/credstore/internal/enclave/contracts"
)

// unsupportedKeyringClient is a stub for unsupported platforms
type unsupportedKeyringClient struct{}

// newPlatformKeyringClient creates a stub client for unsupported platforms
func newPlatformKeyringClient() contracts.KeyringClient {
	return &unsupportedKeyringClient{}
}

// Get returns an error on unsupported platforms
func (c *unsupportedKeyringClient) Get(service, account string) (string, error) {
	return "", ErrUnsupportedPlatform
}

// Set returns an error on unsupported platforms
func (c *unsupportedKeyringClient) Set(service, account, value string) error {
	return ErrUnsupportedPlatform
}

// Delete returns an error on unsupported platforms
func (c *unsupportedKeyringClient) Delete(service, account string) error {
	return ErrUnsupportedPlatform
}

// IsAvailable returns false on unsupported platforms
func (c *unsupportedKeyringClient) IsAvailable() bool {
	return false
}

// IsHeadless returns false (irrelevant on unsupported platforms)
func (c *unsupportedKeyringClient) IsHeadless() bool {
	return false
}

// Ensure unsupportedKeyringClient implements contracts.KeyringClient
var _ contracts.KeyringClient = (*unsupportedKeyringClient)(nil)
