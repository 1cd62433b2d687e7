package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sift-go/internal/sift"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	defaults *IgnoreMatcher
	patterns []string
}

// NewOSFilesystemManager creates a filesystem manager. ignorePatterns are
// applied to every folder ahead of its .siftignore file, which may re-include
// files with "!" rules.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{
		defaults: NewIgnoreMatcher(defaultIgnorePatterns),
		patterns: append([]string(nil), ignorePatterns...),
	}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*sift.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return sift.NewPath(absPath, info.IsDir(), info), nil
}

func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// IsHidden reports dot-files and files carrying the platform hidden flag.
func (m *OSFilesystemManager) IsHidden(path string, info fs.FileInfo) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	return info != nil && hasHiddenFlag(info)
}

// IsIgnored matches path, relative to dir, against the built-in rules, the
// configured patterns and the folder's .siftignore, in that order.
func (m *OSFilesystemManager) IsIgnored(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	if m.defaults.Match(rel) {
		return true
	}
	rules := m.patterns
	if local, err := ParseIgnoreFile(filepath.Join(dir, IgnoreFileName)); err == nil && len(local) > 0 {
		rules = append(append([]string(nil), m.patterns...), local...)
	}
	return NewIgnoreMatcher(rules).Match(rel)
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (m *OSFilesystemManager) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

func (m *OSFilesystemManager) Chtimes(path string, atime, mtime time.Time) error {
	return os.Chtimes(path, atime, mtime)
}

// FindFiles discovers regular files under dir.
func (m *OSFilesystemManager) FindFiles(dir string, recursive bool) ([]*sift.Path, error) {
	var paths []*sift.Path

	if recursive {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			paths = append(paths, sift.NewPath(p, false, info))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory: %w", err)
		}
		return paths, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Vanished between listing and stat.
			continue
		}
		paths = append(paths, sift.NewPath(filepath.Join(dir, entry.Name()), false, info))
	}
	return paths, nil
}

var _ sift.FilesystemManager = (*OSFilesystemManager)(nil)
