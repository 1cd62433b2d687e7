package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-folder ignore file.
const IgnoreFileName = ".siftignore"

// defaultIgnorePatterns are always applied: the ignore file itself, partial
// downloads and the temp files written by Move.
var defaultIgnorePatterns = []string{IgnoreFileName, "*.part", "*.crdownload", "*.download", ".sift-move-*"}

type ignoreRule struct {
	glob    string
	negate  bool // "!pattern" keeps files an earlier rule ignored
	dir     bool // "name/" ignores everything below a directory
	relPath bool // matched against the path relative to the folder
}

// IgnoreMatcher decides which files in a watched folder are never organized.
//
// Rules are read in order and the last matching rule wins, so a later
// "!keep.tmp" overrides an earlier "*.tmp". A rule without '/' matches a base
// name, a rule containing '/' (or starting with one) matches the path relative
// to the folder, and a trailing '/' matches every file below that directory.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw rules. Blank lines and '#' comments are skipped.
func NewIgnoreMatcher(raw []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var r ignoreRule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dir = true
			line = strings.TrimRight(line, "/")
		}
		anchored := strings.HasPrefix(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		r.glob = line
		r.relPath = r.dir || anchored || strings.Contains(line, "/")
		m.rules = append(m.rules, r)
	}
	return m
}

// Match reports whether rel, a path relative to the folder root, is ignored.
func (m *IgnoreMatcher) Match(rel string) bool {
	if rel == "" || len(m.rules) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := rel[strings.LastIndex(rel, "/")+1:]

	ignored := false
	for _, r := range m.rules {
		if r.matches(rel, base) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r ignoreRule) matches(rel, base string) bool {
	if r.dir {
		// Any leading directory of rel may match.
		parts := strings.Split(rel, "/")
		for i := 1; i < len(parts); i++ {
			if ok, _ := filepath.Match(r.glob, strings.Join(parts[:i], "/")); ok {
				return true
			}
		}
		return false
	}
	target := base
	if r.relPath {
		target = rel
	}
	ok, err := filepath.Match(r.glob, target)
	return err == nil && ok
}

// ParseIgnoreFile returns the lines of a .siftignore file, or nil when the
// file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), nil
}
