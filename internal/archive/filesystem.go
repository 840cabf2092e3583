package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tidy-go/internal/tidy"
)

// FileSystemArchive keeps undo-log snapshots as files in a directory:
//
//	<root>/
//	  snapshots/
//	    <name>     (one file per snapshot, e.g. run-000042.db.age)
type FileSystemArchive struct {
	root         string
	snapshotsDir string
}

// NewFileSystemArchive creates an archive rooted at root.
func NewFileSystemArchive(root string) (*FileSystemArchive, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &FileSystemArchive{root: root, snapshotsDir: snapshotsDir}, nil
}

// Put stores size bytes from r under name, replacing any previous snapshot.
func (a *FileSystemArchive) Put(name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	return writeFile(filepath.Join(a.snapshotsDir, name), r, size)
}

// Get writes the named snapshot to w.
func (a *FileSystemArchive) Get(name string, w io.Writer) error {
	if err := validName(name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(a.snapshotsDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("snapshot not found: %s", name)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// List returns snapshots, newest first. Leftover temp files are ignored.
func (a *FileSystemArchive) List() ([]tidy.ArchiveItem, error) {
	entries, err := os.ReadDir(a.snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	items := make([]tidy.ArchiveItem, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, tidy.ArchiveItem{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sortNewestFirst(items)
	return items, nil
}

// ValidateSetup verifies that the archive directories are accessible.
func (a *FileSystemArchive) ValidateSetup() error {
	for _, dir := range []string{a.root, a.snapshotsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("archive directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("archive path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile copies r to destPath through a temp file and verifies the size
// before renaming it into place.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".tmp-") {
		return fmt.Errorf("invalid snapshot name: %q", name)
	}
	return nil
}

func sortNewestFirst(items []tidy.ArchiveItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ModTime.Equal(items[j].ModTime) {
			return items[i].ModTime.After(items[j].ModTime)
		}
		return items[i].Name > items[j].Name
	})
}

// Compile-time check that FileSystemArchive implements tidy.Archive.
var _ tidy.Archive = (*FileSystemArchive)(nil)
