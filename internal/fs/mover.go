package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/otiai10/copy"

	"tidy-go/internal/tidy"
)

// OSTransferer moves and copies files on the real filesystem.
// Destinations are never overwritten.
type OSTransferer struct {
	rename func(oldpath, newpath string) error
	remove func(path string) error
}

// NewOSTransferer creates a transferer backed by the os package.
func NewOSTransferer() *OSTransferer {
	return &OSTransferer{rename: os.Rename, remove: os.Remove}
}

// Move relocates src to dst with a rename, falling back to copy, verify,
// place, delete when the two paths are on different volumes.
func (t *OSTransferer) Move(src, dst string) (*tidy.TransferResult, error) {
	created, err := prepareDestination(dst)
	if err != nil {
		return nil, err
	}

	var res *tidy.TransferResult
	err = t.rename(src, dst)
	switch {
	case err == nil:
		res, err = describe(dst, tidy.TransferMove, "")
		if err != nil {
			return nil, err
		}
	case !errors.Is(err, syscall.EXDEV):
		return nil, &tidy.AccessError{Op: "rename", Path: src, Err: err}
	default:
		res, err = t.copyVerified(src, dst)
		if err != nil {
			return nil, err
		}
		res.Transfer = tidy.TransferMove
		if err := t.remove(src); err != nil {
			res.Transfer = tidy.TransferCopy
			res.CreatedDirs = created
			return res, &tidy.PartialMoveError{Source: src, Destination: dst, Err: err}
		}
	}
	res.CreatedDirs = created
	return res, nil
}

// Copy places a verified copy of src at dst.
func (t *OSTransferer) Copy(src, dst string) (*tidy.TransferResult, error) {
	created, err := prepareDestination(dst)
	if err != nil {
		return nil, err
	}
	res, err := t.copyVerified(src, dst)
	if err != nil {
		return nil, err
	}
	res.Transfer = tidy.TransferCopy
	res.CreatedDirs = created
	return res, nil
}

// Remove deletes a single file.
func (t *OSTransferer) Remove(path string) error {
	if err := t.remove(path); err != nil {
		return &tidy.AccessError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// PruneEmptyDirs removes each of dirs that is empty, in the order given.
// Directories that are missing, not empty, or not strictly below root are
// left alone.
func (t *OSTransferer) PruneEmptyDirs(dirs []string, root string) error {
	root = filepath.Clean(root)
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if !isBelow(dir, root) {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &tidy.AccessError{Op: "read", Path: dir, Err: err}
		}
		if len(entries) > 0 {
			continue
		}
		if err := t.remove(dir); err != nil {
			return &tidy.AccessError{Op: "remove", Path: dir, Err: err}
		}
	}
	return nil
}

// copyVerified copies src into a temp file next to dst, checks size and
// content, and renames it into place.
func (t *OSTransferer) copyVerified(src, dst string) (*tidy.TransferResult, error) {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return nil, &tidy.AccessError{Op: "stat", Path: src, Err: err}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), TempPrefix+"*")
	if err != nil {
		return nil, &tidy.AccessError{Op: "create", Path: dst, Err: err}
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	opts := copy.Options{Sync: true, PreserveTimes: true}
	if err := copy.Copy(src, tmpPath, opts); err != nil {
		return nil, &tidy.AccessError{Op: "copy", Path: src, Err: err}
	}

	tmpInfo, err := os.Lstat(tmpPath)
	if err != nil {
		return nil, &tidy.AccessError{Op: "stat", Path: tmpPath, Err: err}
	}
	if tmpInfo.Size() != srcInfo.Size() {
		return nil, &tidy.AccessError{Op: "verify", Path: dst, Err: fmt.Errorf("size mismatch: expected %d bytes, got %d", srcInfo.Size(), tmpInfo.Size())}
	}

	srcSum, err := tidy.HashFile(tidy.SHA256, src)
	if err != nil {
		return nil, err
	}
	tmpSum, err := tidy.HashFile(tidy.SHA256, tmpPath)
	if err != nil {
		return nil, err
	}
	if srcSum != tmpSum {
		return nil, &tidy.AccessError{Op: "verify", Path: dst, Err: errors.New("checksum mismatch after copy")}
	}

	// The destination may have appeared while copying.
	if _, err := os.Lstat(dst); err == nil {
		return nil, &tidy.AccessError{Op: "place", Path: dst, Err: fs.ErrExist}
	}
	if err := t.rename(tmpPath, dst); err != nil {
		return nil, &tidy.AccessError{Op: "place", Path: dst, Err: err}
	}
	success = true

	return describe(dst, tidy.TransferCopy, srcSum)
}

// prepareDestination refuses to overwrite dst and creates its missing parent
// folders, returning the ones it made deepest first.
func prepareDestination(dst string) ([]string, error) {
	if _, err := os.Lstat(dst); err == nil {
		return nil, &tidy.AccessError{Op: "place", Path: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &tidy.AccessError{Op: "stat", Path: dst, Err: err}
	}
	return makeParents(filepath.Dir(dst))
}

// makeParents creates dir and any missing ancestors one level at a time.
// A folder another worker made first is not reported as created.
func makeParents(dir string) ([]string, error) {
	var missing []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		_, err := os.Lstat(d)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &tidy.AccessError{Op: "stat", Path: d, Err: err}
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}

	var created []string
	for i := len(missing) - 1; i >= 0; i-- {
		err := os.Mkdir(missing[i], 0755)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return nil, &tidy.AccessError{Op: "mkdir", Path: missing[i], Err: err}
		}
		if err == nil {
			created = append(created, missing[i])
		}
	}
	slices.Reverse(created)
	return created, nil
}

func describe(path string, transfer tidy.Transfer, hash string) (*tidy.TransferResult, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, &tidy.AccessError{Op: "stat", Path: path, Err: err}
	}
	return &tidy.TransferResult{
		Transfer: transfer,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Hash:     hash,
	}, nil
}

// isBelow reports whether path is strictly inside root.
func isBelow(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Compile-time check that OSTransferer implements tidy.Transferer.
var _ tidy.Transferer = (*OSTransferer)(nil)
