package testutil

import "visitnotes/internal/vault"

// NewTestVault creates a new in-memory audio vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}
