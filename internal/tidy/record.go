package tidy

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileRecord is an immutable snapshot of one file found by a scan.
// Records are created by the scanner and only read afterwards. The one
// exception is the content hash cache, which is filled lazily and is safe
// for concurrent use.
type FileRecord struct {
	Path    string      // absolute, cleaned path; the record's identity
	Size    int64       // size in bytes at scan time
	ModTime time.Time   // last-modified time at scan time
	Ext     string      // lowercase extension including the dot, "" if none
	Mode    fs.FileMode // file mode at scan time
	TakenAt time.Time   // capture time from image metadata; zero when unknown

	hashMu sync.Mutex
	hashes map[string]string // algorithm -> hex digest
}

// NewFileRecord builds a record from an absolute path and its stat info.
func NewFileRecord(absPath string, info fs.FileInfo) *FileRecord {
	return &FileRecord{
		Path:    filepath.Clean(absPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Ext:     NormalizeExt(filepath.Ext(absPath)),
		Mode:    info.Mode(),
	}
}

// ID returns the record identity, its canonical path.
func (r *FileRecord) ID() string {
	return r.Path
}

// Name returns the base file name.
func (r *FileRecord) Name() string {
	return filepath.Base(r.Path)
}

// IsHidden reports whether the file name starts with a dot.
func (r *FileRecord) IsHidden() bool {
	return strings.HasPrefix(r.Name(), ".")
}

// DateTime returns the time used for date-based organization: the capture
// time when known, otherwise the modification time.
func (r *FileRecord) DateTime() time.Time {
	if !r.TakenAt.IsZero() {
		return r.TakenAt
	}
	return r.ModTime
}

// DateFolder returns the YYYY-MM folder name for the record.
func (r *FileRecord) DateFolder() string {
	return r.DateTime().Format("2006-01")
}

// CachedHash returns the digest previously computed with the named algorithm.
func (r *FileRecord) CachedHash(algorithm string) (string, bool) {
	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	sum, ok := r.hashes[algorithm]
	return sum, ok
}

// ContentHash returns the record's digest for h, computing and caching it on
// first use. Hashing streams the file; it is never loaded into memory whole.
func (r *FileRecord) ContentHash(h Hasher) (string, error) {
	if sum, ok := r.CachedHash(h.Name()); ok {
		return sum, nil
	}

	sum, err := HashFile(h, r.Path)
	if err != nil {
		return "", err
	}

	r.hashMu.Lock()
	defer r.hashMu.Unlock()
	if r.hashes == nil {
		r.hashes = make(map[string]string)
	}
	r.hashes[h.Name()] = sum
	return sum, nil
}

// String implements fmt.Stringer for log output.
func (r *FileRecord) String() string {
	return fmt.Sprintf("%s (%d bytes)", r.Path, r.Size)
}

// NormalizeExt lowercases an extension and makes sure it starts with a dot.
// An empty input stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
