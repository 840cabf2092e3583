// Package lock serializes mutating tidy invocations that share a data
// directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside the data directory.
const FileName = "tidy.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another tidy process is running")

// RunLock is an exclusive, process-wide lock on a data directory.
type RunLock struct {
	flock *flock.Flock
	path  string
}

// New creates a lock for dataDir. The directory is created if needed;
// the lock itself is not taken until Acquire.
func New(dataDir string) (*RunLock, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path := filepath.Join(dataDir, FileName)
	return &RunLock{flock: flock.New(path), path: path}, nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It returns ErrLocked if the
// lock is held elsewhere.
func (l *RunLock) Acquire() error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to try lock on %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrLocked, l.path)
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *RunLock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
