package testutil

import (
	"io/fs"
	"path/filepath"
	"sync"

	"tidy-go/internal/tidy"
)

// FailingTransferer wraps a real transferer and fails chosen sources with a
// permission error. Safe for concurrent use.
type FailingTransferer struct {
	tidy.Transferer

	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

// NewFailingTransferer fails Move and Copy for any source in failPaths.
func NewFailingTransferer(inner tidy.Transferer, failPaths ...string) *FailingTransferer {
	f := &FailingTransferer{Transferer: inner, fail: make(map[string]bool)}
	for _, p := range failPaths {
		f.fail[filepath.Clean(p)] = true
	}
	return f
}

// FailPath adds a source that should fail.
func (f *FailingTransferer) FailPath(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[filepath.Clean(path)] = true
}

// Calls returns how many Move and Copy calls were made.
func (f *FailingTransferer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FailingTransferer) check(op, src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[filepath.Clean(src)] {
		return &tidy.AccessError{Op: op, Path: src, Err: fs.ErrPermission}
	}
	return nil
}

func (f *FailingTransferer) Move(src, dst string) (*tidy.TransferResult, error) {
	if err := f.check("rename", src); err != nil {
		return nil, err
	}
	return f.Transferer.Move(src, dst)
}

func (f *FailingTransferer) Copy(src, dst string) (*tidy.TransferResult, error) {
	if err := f.check("copy", src); err != nil {
		return nil, err
	}
	return f.Transferer.Copy(src, dst)
}
