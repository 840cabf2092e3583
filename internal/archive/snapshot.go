package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tidy-go/internal/tidy"
)

const (
	snapshotExt  = ".db"
	encryptedExt = ".age"
)

// Source is a database that can write a consistent copy of itself.
type Source interface {
	BackupTo(destPath string) error
}

// Snapshotter copies the undo database into an archive after mutating
// runs. With an Encryptor configured the copy is encrypted first.
type Snapshotter struct {
	archive   tidy.Archive
	encryptor tidy.Encryptor
	tempDir   string
}

// NewSnapshotter creates a Snapshotter. enc may be nil for plaintext snapshots.
func NewSnapshotter(a tidy.Archive, enc tidy.Encryptor) *Snapshotter {
	return &Snapshotter{archive: a, encryptor: enc}
}

// SnapshotName returns the archive name for the snapshot taken after run.
func SnapshotName(runID int64, encrypted bool) string {
	name := fmt.Sprintf("run-%06d%s", runID, snapshotExt)
	if encrypted {
		name += encryptedExt
	}
	return name
}

// RunIDFromName extracts the run id from a snapshot name.
func RunIDFromName(name string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(name, "run-%d.db", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// LatestRunID returns the highest run id among the archived snapshots, or 0.
func LatestRunID(a tidy.Archive) (int64, error) {
	items, err := a.List()
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	var latest int64
	for _, it := range items {
		if id, ok := RunIDFromName(it.Name); ok && id > latest {
			latest = id
		}
	}
	return latest, nil
}

// IsEncrypted reports whether a snapshot name denotes an encrypted snapshot.
func IsEncrypted(name string) bool {
	return strings.HasSuffix(name, encryptedExt)
}

func (s *Snapshotter) encrypts() bool {
	return s.encryptor != nil && s.encryptor.IsConfigured()
}

// Snapshot backs up src and stores it under the name for runID.
func (s *Snapshotter) Snapshot(src Source, runID int64) (string, error) {
	dir, err := os.MkdirTemp(s.tempDir, "tidy-snapshot-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir for snapshot: %w", err)
	}
	defer os.RemoveAll(dir)

	plain := filepath.Join(dir, "undo.db")
	if err := src.BackupTo(plain); err != nil {
		return "", err
	}

	upload := plain
	encrypted := s.encrypts()
	if encrypted {
		upload = filepath.Join(dir, "undo.db.age")
		if err := s.encryptFile(plain, upload); err != nil {
			return "", err
		}
	}

	name := SnapshotName(runID, encrypted)
	f, err := os.Open(upload)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat snapshot: %w", err)
	}
	if err := s.archive.Put(name, f, info.Size()); err != nil {
		return "", fmt.Errorf("archiving snapshot %s: %w", name, err)
	}
	return name, nil
}

// Restore writes the named snapshot to destPath. Encrypted snapshots need
// an unlocked DecryptionContext.
func (s *Snapshotter) Restore(name, destPath string, dc tidy.DecryptionContext) error {
	if IsEncrypted(name) && dc == nil {
		return fmt.Errorf("snapshot %s is encrypted: unlock the private key first", name)
	}

	tmp, err := os.CreateTemp(s.tempDir, "tidy-restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := s.archive.Get(name, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	src, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("reopening snapshot: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	if IsEncrypted(name) {
		err = dc.Decrypt(src, out)
	} else {
		_, err = io.Copy(out, src)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("restoring snapshot %s: %w", name, err)
	}
	return nil
}

func (s *Snapshotter) encryptFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot for encryption: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := s.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing encrypted snapshot: %w", err)
	}
	return nil
}
