package testutil

import (
	"sift-go/internal/sift"
	"sift-go/internal/vault"
)

// NewTestVault creates a new in-memory backup vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault")
}

var _ sift.Vault = (*vault.MemoryVault)(nil)
