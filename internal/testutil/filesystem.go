package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"tidy-go/internal/tidy"
)

// MockFile is a file or directory in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory tidy.FilesystemManager. Paths are
// used as given; callers pass absolute slash paths such as "/home/u/a.txt".
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	now   time.Time
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
		now:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

// AddFile adds a regular file with the default modification time.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.AddFileAt(path, content, m.now)
}

// AddFileAt adds a regular file with an explicit modification time.
func (m *MockFilesystemManager) AddFileAt(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     modTime,
	}
}

// AddDirectory adds a directory.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{
		Permissions: 0755,
		ModTime:     m.now,
		IsDirectory: true,
	}
}

// Record returns a file record for a file previously added.
func (m *MockFilesystemManager) Record(path string) *tidy.FileRecord {
	info, err := m.Stat(path)
	if err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
	return tidy.NewFileRecord(filepath.Clean(path), info)
}

// Records returns records for every regular file, sorted by path.
func (m *MockFilesystemManager) Records() []*tidy.FileRecord {
	m.mu.Lock()
	var paths []string
	for p, f := range m.files {
		if !f.IsDirectory {
			paths = append(paths, p)
		}
	}
	m.mu.Unlock()

	sort.Strings(paths)
	out := make([]*tidy.FileRecord, 0, len(paths))
	for _, p := range paths {
		out = append(out, m.Record(p))
	}
	return out
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*tidy.Path, error) {
	info, err := m.Stat(rawPath)
	if err != nil {
		return nil, err
	}
	return tidy.NewPath(filepath.Clean(rawPath), info.IsDir(), info), nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	file, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}, nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }
func (m *mockFileInfo) Mode() fs.FileMode {
	if m.isDir {
		return m.mode | fs.ModeDir
	}
	return m.mode
}

// Compile-time check
var _ tidy.FilesystemManager = (*MockFilesystemManager)(nil)
