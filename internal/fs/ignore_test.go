package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Parallel()
	m := NewIgnoreMatcher([]string{"", "  ", "# downloads", "*.crdownload", "!keep.part", "Private/", "/", "!"})

	want := []ignoreRule{
		{glob: "*.crdownload"},
		{glob: "keep.part", negate: true},
		{glob: "Private", dir: true, relPath: true},
	}
	if len(m.rules) != len(want) {
		t.Fatalf("rules = %+v, want %d rules", m.rules, len(want))
	}
	for i, r := range want {
		if m.rules[i] != r {
			t.Errorf("rules[%d] = %+v, want %+v", i, m.rules[i], r)
		}
	}
}

func TestIgnoreMatcher_Match(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		rules []string
		rel   string
		want  bool
	}{
		{name: "defaults skip partial downloads", rules: defaultIgnorePatterns, rel: "setup.dmg.crdownload", want: true},
		{name: "defaults skip move temp files", rules: defaultIgnorePatterns, rel: ".sift-move-4821", want: true},
		{name: "defaults skip ignore file in subfolder", rules: defaultIgnorePatterns, rel: filepath.Join("2024", IgnoreFileName), want: true},
		{name: "defaults keep finished download", rules: defaultIgnorePatterns, rel: "setup.dmg", want: false},
		{name: "base name rule matches at any depth", rules: []string{"*.tmp"}, rel: filepath.Join("a", "b", "x.tmp"), want: true},
		{name: "path rule is anchored", rules: []string{"scans/raw/*"}, rel: filepath.Join("old", "scans", "raw", "p1.png"), want: false},
		{name: "path rule matches relative path", rules: []string{"scans/raw/*"}, rel: filepath.Join("scans", "raw", "p1.png"), want: true},
		{name: "leading slash anchors to folder root", rules: []string{"/notes.txt"}, rel: "notes.txt", want: true},
		{name: "anchored rule skips subfolders", rules: []string{"/notes.txt"}, rel: filepath.Join("sub", "notes.txt"), want: false},
		{name: "directory rule covers nested files", rules: []string{"Private/"}, rel: filepath.Join("Private", "tax", "2023.pdf"), want: true},
		{name: "directory rule does not match file of same name", rules: []string{"Private/"}, rel: "Private", want: false},
		{name: "directory rule with glob", rules: []string{"build-*/"}, rel: filepath.Join("build-42", "log.txt"), want: true},
		{name: "negation re-includes", rules: []string{"*.part", "!movie.part"}, rel: "movie.part", want: false},
		{name: "negation only for its match", rules: []string{"*.part", "!movie.part"}, rel: "song.part", want: true},
		{name: "last matching rule wins", rules: []string{"!invoice.tmp", "*.tmp"}, rel: "invoice.tmp", want: true},
		{name: "bad glob is ignored", rules: []string{"[", "*.iso"}, rel: "disk.iso", want: true},
		{name: "empty path", rules: []string{"*"}, rel: "", want: false},
		{name: "no rules", rules: nil, rel: "a.txt", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewIgnoreMatcher(tt.rules).Match(tt.rel); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Parallel()

	t.Run("returns raw lines", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		if err := os.WriteFile(path, []byte("*.crdownload\r\n# keep installers\r\n!*.pkg\r\nPrivate/\r\n"), 0644); err != nil {
			t.Fatal(err)
		}

		lines, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		m := NewIgnoreMatcher(lines)
		if len(m.rules) != 3 {
			t.Errorf("parsed rules = %d, want 3 from %q", len(m.rules), lines)
		}
		if m.Match("tool.pkg") || !m.Match("movie.crdownload") {
			t.Error("rules from file not applied")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		lines, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
		if err != nil || lines != nil {
			t.Errorf("ParseIgnoreFile() = %v, %v; want nil, nil", lines, err)
		}
	})
}
