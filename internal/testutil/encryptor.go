package testutil

import (
	"sift-go/internal/encryption"
	"sift-go/internal/sift"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() sift.Encryptor {
	return encryption.NewTestEncryptor()
}
