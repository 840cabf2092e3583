package fs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"testing"
	"time"

	"tidy-go/internal/tidy"
)

// crossVolume makes the first rename of src fail with EXDEV.
func crossVolume(src string) func(string, string) error {
	return func(oldpath, newpath string) error {
		if oldpath == src {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		return os.Rename(oldpath, newpath)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(b)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestOSTransferer_Move(t *testing.T) {
	t.Run("same volume rename", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		src := filepath.Join(root, "a.txt")
		dst := filepath.Join(root, "Documents", "a.txt")
		writeTree(t, root, map[string]string{"a.txt": "alpha"})

		res, err := NewOSTransferer().Move(src, dst)
		if err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if res.Transfer != tidy.TransferMove || res.Size != 5 {
			t.Errorf("result = %+v", res)
		}
		if exists(src) {
			t.Error("source still exists")
		}
		if readFile(t, dst) != "alpha" {
			t.Error("destination content mismatch")
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.txt": "new", "Documents/a.txt": "old"})
		dst := filepath.Join(root, "Documents", "a.txt")

		_, err := NewOSTransferer().Move(filepath.Join(root, "a.txt"), dst)
		if !errors.Is(err, os.ErrExist) {
			t.Fatalf("Move() error = %v, want ErrExist", err)
		}
		if readFile(t, dst) != "old" {
			t.Error("existing destination was overwritten")
		}
	})

	t.Run("cross volume copies then deletes", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		src := filepath.Join(root, "clip.mp4")
		dst := filepath.Join(root, "Videos", "clip.mp4")
		writeTree(t, root, map[string]string{"clip.mp4": "frames"})
		mtime := time.Date(2022, 3, 1, 8, 0, 0, 0, time.UTC)
		if err := os.Chtimes(src, mtime, mtime); err != nil {
			t.Fatal(err)
		}

		tr := &OSTransferer{rename: crossVolume(src), remove: os.Remove}
		res, err := tr.Move(src, dst)
		if err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if res.Transfer != tidy.TransferMove {
			t.Errorf("Transfer = %s, want move", res.Transfer)
		}
		if res.Hash == "" {
			t.Error("cross-volume move should record the verified hash")
		}
		if !res.ModTime.Equal(mtime) {
			t.Errorf("ModTime = %v, want %v", res.ModTime, mtime)
		}
		if exists(src) {
			t.Error("source still exists")
		}
		if readFile(t, dst) != "frames" {
			t.Error("destination content mismatch")
		}
		leftovers, _ := filepath.Glob(filepath.Join(root, "Videos", TempPrefix+"*"))
		if len(leftovers) != 0 {
			t.Errorf("temp files left behind: %v", leftovers)
		}
	})

	t.Run("cross volume with undeletable source", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		src := filepath.Join(root, "song.mp3")
		dst := filepath.Join(root, "Audio", "song.mp3")
		writeTree(t, root, map[string]string{"song.mp3": "notes"})

		tr := &OSTransferer{
			rename: crossVolume(src),
			remove: func(string) error { return os.ErrPermission },
		}
		res, err := tr.Move(src, dst)
		var perr *tidy.PartialMoveError
		if !errors.As(err, &perr) {
			t.Fatalf("Move() error = %v, want *PartialMoveError", err)
		}
		if res == nil || res.Transfer != tidy.TransferCopy {
			t.Fatalf("result = %+v, want a copy result", res)
		}
		if !exists(src) || !exists(dst) {
			t.Error("both copies should remain")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		_, err := NewOSTransferer().Move(filepath.Join(root, "gone"), filepath.Join(root, "x", "gone"))
		if !errors.Is(err, tidy.ErrAccess) {
			t.Fatalf("Move() error = %v, want access error", err)
		}
	})
}

func TestOSTransferer_Copy(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	dst := filepath.Join(root, "Documents", "a.txt")
	writeTree(t, root, map[string]string{"a.txt": "alpha"})

	res, err := NewOSTransferer().Copy(src, dst)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if res.Transfer != tidy.TransferCopy || res.Hash == "" {
		t.Errorf("result = %+v", res)
	}
	if readFile(t, src) != "alpha" || readFile(t, dst) != "alpha" {
		t.Error("copy should leave both files with the same content")
	}
}

func TestOSTransferer_CreatedDirs(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		dst      string
		want     []string
	}{
		{"parent exists", []string{"Documents"}, "Documents/a.txt", nil},
		{"one level", nil, "Documents/a.txt", []string{"Documents"}},
		{"nested", []string{"Documents"}, "Documents/2024/03/a.txt", []string{"Documents/2024/03", "Documents/2024"}},
		{"all missing", nil, "Documents/2024/a.txt", []string{"Documents/2024", "Documents"}},
	}

	for _, tt := range tests {
		for _, op := range []string{"move", "copy"} {
			t.Run(tt.name+"/"+op, func(t *testing.T) {
				t.Parallel()
				root := t.TempDir()
				writeTree(t, root, map[string]string{"a.txt": "alpha"})
				for _, d := range tt.existing {
					if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
						t.Fatal(err)
					}
				}

				src := filepath.Join(root, "a.txt")
				dst := filepath.Join(root, filepath.FromSlash(tt.dst))
				tr := NewOSTransferer()
				var (
					res *tidy.TransferResult
					err error
				)
				if op == "move" {
					res, err = tr.Move(src, dst)
				} else {
					res, err = tr.Copy(src, dst)
				}
				if err != nil {
					t.Fatalf("%s() error = %v", op, err)
				}

				var want []string
				for _, d := range tt.want {
					want = append(want, filepath.Join(root, filepath.FromSlash(d)))
				}
				if !slices.Equal(res.CreatedDirs, want) {
					t.Errorf("CreatedDirs = %q, want %q", res.CreatedDirs, want)
				}
			})
		}
	}
}

func TestOSTransferer_Move_CrossVolumeReportsCreatedDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "alpha"})
	src := filepath.Join(root, "a.txt")
	dst := filepath.Join(root, "Documents", "a.txt")

	tr := &OSTransferer{rename: crossVolume(src), remove: os.Remove}
	res, err := tr.Move(src, dst)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if want := []string{filepath.Join(root, "Documents")}; !slices.Equal(res.CreatedDirs, want) {
		t.Errorf("CreatedDirs = %q, want %q", res.CreatedDirs, want)
	}
}

func TestOSTransferer_PruneEmptyDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Images/keep.jpg": "k"})
	for _, d := range []string{"Documents/2024-01", "Videos"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	outside := t.TempDir()

	tr := NewOSTransferer()
	err := tr.PruneEmptyDirs([]string{
		filepath.Join(root, "Documents", "2024-01"),
		filepath.Join(root, "Documents"),
		filepath.Join(root, "Images"),
		filepath.Join(root, "Music"),
		outside,
		root,
	}, root)
	if err != nil {
		t.Fatalf("PruneEmptyDirs() error = %v", err)
	}

	if exists(filepath.Join(root, "Documents")) {
		t.Error("listed empty folders should be removed")
	}
	if !exists(filepath.Join(root, "Videos")) {
		t.Error("an empty folder that was not listed was removed")
	}
	if !exists(filepath.Join(root, "Images", "keep.jpg")) {
		t.Error("non-empty folder was pruned")
	}
	if !exists(outside) {
		t.Error("folder outside root was removed")
	}
	if !exists(root) {
		t.Fatal("root must never be removed")
	}
}

func TestIsBelow(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/a/b", "/a", true},
		{"/a", "/a", false},
		{"/ab", "/a", false},
		{"/", "/a", false},
		{"/a/..b", "/a", true},
	}
	for _, tt := range tests {
		if got := isBelow(tt.path, tt.root); got != tt.want {
			t.Errorf("isBelow(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}
