package sift

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager abstracts the filesystem operations the organizer performs.
type FilesystemManager interface {
	// Resolve makes rawPath absolute and verifies it exists.
	Resolve(rawPath string) (*Path, error)

	// Stat returns fresh file info. The error wraps fs.ErrNotExist for missing files.
	Stat(path string) (fs.FileInfo, error)

	// IsHidden reports whether the file is hidden (dot-name or platform hidden flag).
	IsHidden(path string, info fs.FileInfo) bool

	// IsIgnored reports whether a file inside dir matches an ignore pattern.
	IsIgnored(dir, path string) bool

	Open(path string) (io.ReadCloser, error)
	MkdirAll(dir string) error
	Remove(path string) error

	// Move renames src to dst, falling back to copy-then-delete across devices.
	// preserveMetadata keeps timestamps and extended attributes on the copy path.
	Move(src, dst string, preserveMetadata bool) error

	Chtimes(path string, atime, mtime time.Time) error

	// FindFiles lists regular files in dir.
	FindFiles(dir string, recursive bool) ([]*Path, error)
}
