package tidy

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager is the read side of the filesystem. The planner uses it
// to probe destinations; it never mutates anything.
type FilesystemManager interface {
	// Resolve makes rawPath absolute, stats it, and rejects special files.
	Resolve(rawPath string) (*Path, error)

	// Stat returns fresh info for path without following symlinks.
	// A missing path returns an error matching fs.ErrNotExist.
	Stat(path string) (fs.FileInfo, error)

	// Open opens a regular file for reading.
	Open(path string) (io.ReadCloser, error)
}

// TransferResult describes the file left at the destination.
type TransferResult struct {
	Transfer Transfer // what actually happened; a partial move reports TransferCopy
	Size     int64
	ModTime  time.Time
	Hash     string // sha256 of the destination, empty when not computed

	// CreatedDirs lists the folders made to hold the destination, deepest
	// first. Folders that already existed are not listed.
	CreatedDirs []string
}

// Transferer performs the mutating filesystem operations. Move and Copy never
// overwrite an existing destination and create parent directories on demand.
type Transferer interface {
	// Move relocates src to dst. A same-volume move is a single rename. A
	// cross-volume move copies, verifies, places, then removes src; if the
	// last step fails the result is returned alongside a *PartialMoveError.
	Move(src, dst string) (*TransferResult, error)

	// Copy places a verified copy of src at dst.
	Copy(src, dst string) (*TransferResult, error)

	// Remove deletes a single file.
	Remove(path string) error

	// PruneEmptyDirs removes each of dirs, in order, when it is empty and
	// strictly below root. Missing or non-empty folders are left alone.
	PruneEmptyDirs(dirs []string, root string) error
}

// PlanStore keeps previewed plans so apply runs exactly what was shown.
type PlanStore interface {
	Save(p *Plan) error
	// Load returns nil, nil when no plan has this id.
	Load(id string) (*Plan, error)
	// Latest returns the most recently saved plan, or nil, nil.
	Latest() (*Plan, error)
	Remove(id string) error
}

// Metrics receives engine counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveScan(files int, d time.Duration)
	ObserveHash(algorithm string, bytes int64)
	ObserveAction(kind ActionKind, status ProgressStatus, bytes int64, d time.Duration)
	ObserveRevert(status EntryStatus)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveScan(int, time.Duration)                                {}
func (NopMetrics) ObserveHash(string, int64)                                     {}
func (NopMetrics) ObserveAction(ActionKind, ProgressStatus, int64, time.Duration) {}
func (NopMetrics) ObserveRevert(EntryStatus)                                     {}

// Archive stores named snapshots of the undo database.
type Archive interface {
	// Put stores size bytes from r under name, replacing any previous item.
	Put(name string, r io.Reader, size int64) error

	// Get writes the named item to w.
	Get(name string, w io.Writer) error

	// List returns stored items, newest first.
	List() ([]ArchiveItem, error)

	// ValidateSetup verifies that the archive is accessible.
	ValidateSetup() error
}

// ArchiveItem describes one stored snapshot.
type ArchiveItem struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Encryptor encrypts archive snapshots with a public key. Decryption needs
// the private key, unlocked by passphrase.
type Encryptor interface {
	// Setup generates a key pair and stores the private key encrypted with passphrase.
	Setup(passphrase string) error

	// Encrypt writes ciphertext of r to w using the public key only.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key for the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
