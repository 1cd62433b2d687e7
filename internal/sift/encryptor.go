package sift

import "io"

// Encryptor handles encryption of backup copies.
// Encryption uses the public key only; decryption requires unlocking the
// private key with a passphrase.
type Encryptor interface {
	// Setup generates a key pair and protects the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock returns a DecryptionContext for restoring backups.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether keys exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
