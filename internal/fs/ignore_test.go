package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# keep drafts", "*.part"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.part" {
			t.Errorf("expected *.part, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("trailing slash names a directory", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"node_modules/", "/"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].matchPath {
			t.Error("node_modules/ should match basenames")
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob at root", []string{"*.crdownload"}, "movie.mp4.crdownload", true},
		{"basename glob in subdirectory", []string{"*.crdownload"}, filepath.Join("Downloads", "a.crdownload"), true},
		{"different extension", []string{"*.crdownload"}, "a.mp4", false},
		{"exact basename", []string{"Thumbs.db"}, filepath.Join("photos", "Thumbs.db"), true},
		{"path pattern exact", []string{"Projects/keep"}, filepath.Join("Projects", "keep"), true},
		{"path pattern elsewhere", []string{"Projects/keep"}, filepath.Join("Other", "keep"), false},
		{"path pattern glob", []string{"Projects/*.iso"}, filepath.Join("Projects", "disk.iso"), true},
		{"question mark", []string{"?.txt"}, "a.txt", true},
		{"question mark is one char", []string{"?.txt"}, "ab.txt", false},
		{"character class", []string{"*.[oa]"}, "lib.a", true},
		{"no patterns", nil, "anything.txt", false},
		{"empty path", []string{"*.log"}, "", false},
		{"second pattern matches", []string{"*.log", "*.tmp"}, "data.tmp", true},
		{"bad pattern is ignored", []string{"[", "*.tmp"}, "x.tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestDefaultIgnorePatterns(t *testing.T) {
	t.Parallel()
	m := NewIgnoreMatcher(defaultIgnorePatterns)
	for _, p := range []string{IgnoreFileName, TempPrefix + "123", filepath.Join("Documents", TempPrefix+"x")} {
		if !m.Match(p) {
			t.Errorf("default patterns should ignore %q", p)
		}
	}
	if m.Match("report.txt") {
		t.Error("default patterns should not ignore report.txt")
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads raw lines", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		content := "*.part\n# comment\n\n*.tmp\nProjects/keep\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 5 {
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}
		if m := NewIgnoreMatcher(patterns); len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), "nope", IgnoreFileName))
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}
