package sift

import (
	"context"
	"io"
)

// Vault stores backup copies of files before they are moved. Keys are
// slash-separated relative paths.
type Vault interface {
	// Put stores size bytes from r under key. Storing the same key twice is safe.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the object stored under key to w. A missing key yields ErrNotFound.
	Get(ctx context.Context, key string, w io.Writer) error

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// ValidateSetup checks that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
