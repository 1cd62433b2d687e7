package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/xattr"
)

// Move renames src to dst. When rename fails, for example across devices,
// it copies to a temp file beside dst, renames that into place and removes src.
func (m *OSFilesystemManager) Move(src, dst string, preserveMetadata bool) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := copyFile(src, dst, preserveMetadata); err != nil {
		return fmt.Errorf("copying after rename failed: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string, preserveMetadata bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".sift-move-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}

	if preserveMetadata {
		if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
			return err
		}
		copyXattrs(src, tmpPath)
	}

	return os.Rename(tmpPath, dst)
}

// copyXattrs is best effort: many filesystems do not support extended attributes.
func copyXattrs(src, dst string) {
	names, err := xattr.List(src)
	if err != nil {
		return
	}
	for _, name := range names {
		value, err := xattr.Get(src, name)
		if err != nil {
			continue
		}
		_ = xattr.Set(dst, name, value)
	}
}
