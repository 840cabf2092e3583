package tidy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Hash algorithm names accepted in configuration.
const (
	HashSHA256 = "sha256"
	HashXXH64  = "xxhash"
)

// hashBufferSize bounds the memory used while streaming a file into a hash.
const hashBufferSize = 64 * 1024

// Hasher produces content digests. Implementations must be safe to share
// between goroutines; New returns independent state each call.
type Hasher interface {
	// Name identifies the algorithm; digests are only comparable within a name.
	Name() string
	New() hash.Hash
}

type sha256Hasher struct{}

func (sha256Hasher) Name() string   { return HashSHA256 }
func (sha256Hasher) New() hash.Hash { return sha256.New() }

type xxHasher struct{}

func (xxHasher) Name() string   { return HashXXH64 }
func (xxHasher) New() hash.Hash { return xxhash.New() }

// SHA256 is the default content hasher.
var SHA256 Hasher = sha256Hasher{}

// XXH64 is a fast non-cryptographic hasher.
var XXH64 Hasher = xxHasher{}

// NewHasher returns the hasher registered under name. An empty name selects SHA-256.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case HashSHA256, "":
		return SHA256, nil
	case HashXXH64:
		return XXH64, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %q", name)
	}
}

// HashReader streams r into a new digest from h and returns its hex form.
func HashReader(h Hasher, r io.Reader) (string, int64, error) {
	d := h.New()
	n, err := io.CopyBuffer(d, r, make([]byte, hashBufferSize))
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(d.Sum(nil)), n, nil
}

// HashFile returns the hex digest of the file at path.
// Failures are reported as *AccessError.
func HashFile(h Hasher, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &AccessError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	sum, _, err := HashReader(h, f)
	if err != nil {
		return "", &AccessError{Op: "hash", Path: path, Err: err}
	}
	return sum, nil
}

// HashPrefix returns the hex digest of at most limit leading bytes of the file.
func HashPrefix(h Hasher, path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &AccessError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	sum, _, err := HashReader(h, io.LimitReader(f, limit))
	if err != nil {
		return "", &AccessError{Op: "hash", Path: path, Err: err}
	}
	return sum, nil
}
