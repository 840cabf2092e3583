package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"tidy-go/internal/tidy"
)

// ScanOptions controls which files a Scanner reports.
type ScanOptions struct {
	Recursive     bool
	Exclude       []string // ignore patterns, same syntax as .tidyignore
	SkipHidden    bool     // skip dot files and dot directories
	OneFilesystem bool     // do not descend into other mounted filesystems
	CaptureDates  bool     // read EXIF capture times from photos
}

// Scanner walks a directory tree producing file records.
type Scanner struct {
	opts ScanOptions
}

// NewScanner creates a scanner with the given options.
func NewScanner(opts ScanOptions) *Scanner {
	return &Scanner{opts: opts}
}

// Scan returns a lazy sequence of the regular files under root, in lexical
// order. Every range over the sequence walks the tree again. Entries that
// cannot be read are yielded as *tidy.AccessError and the walk continues.
// Symlinks and special files are never reported or followed.
func (s *Scanner) Scan(root string) iter.Seq2[*tidy.FileRecord, error] {
	return func(yield func(*tidy.FileRecord, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(nil, fmt.Errorf("resolving scan root: %w", err))
			return
		}
		rootInfo, err := os.Lstat(absRoot)
		if err != nil {
			yield(nil, &tidy.AccessError{Op: "stat", Path: absRoot, Err: err})
			return
		}
		if !rootInfo.IsDir() {
			yield(nil, &tidy.AccessError{Op: "scan", Path: absRoot, Err: errors.New("not a directory")})
			return
		}

		matcher, err := s.matcher(absRoot)
		if err != nil {
			yield(nil, &tidy.AccessError{Op: "read", Path: filepath.Join(absRoot, IgnoreFileName), Err: err})
			return
		}
		rootDev, haveDev := deviceOf(rootInfo)

		_ = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(nil, &tidy.AccessError{Op: "read", Path: p, Err: err}) {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() && p != absRoot {
					return fs.SkipDir
				}
				return nil
			}
			if p == absRoot {
				return nil
			}

			rel, err := filepath.Rel(absRoot, p)
			if err != nil {
				rel = d.Name()
			}

			if d.IsDir() {
				if s.skipDir(d, rel, matcher, rootDev, haveDev) {
					return fs.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}
			if s.opts.SkipHidden && isHidden(d.Name()) {
				return nil
			}
			if matcher.Match(rel) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if !yield(nil, &tidy.AccessError{Op: "stat", Path: p, Err: err}) {
					return fs.SkipAll
				}
				return nil
			}

			rec := tidy.NewFileRecord(p, info)
			if s.opts.CaptureDates && hasCaptureMetadata(rec.Ext) {
				if t, ok := readCaptureTime(p); ok {
					rec.TakenAt = t
				}
			}
			if !yield(rec, nil) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// Collect drains a scan into a slice, separating records from errors.
func Collect(seq iter.Seq2[*tidy.FileRecord, error]) ([]*tidy.FileRecord, []error) {
	var records []*tidy.FileRecord
	var errs []error
	for rec, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func (s *Scanner) skipDir(d fs.DirEntry, rel string, matcher *IgnoreMatcher, rootDev uint64, haveDev bool) bool {
	if !s.opts.Recursive {
		return true
	}
	if s.opts.SkipHidden && isHidden(d.Name()) {
		return true
	}
	if matcher.Match(rel) {
		return true
	}
	if s.opts.OneFilesystem && haveDev {
		info, err := d.Info()
		if err != nil {
			return true
		}
		if dev, ok := deviceOf(info); ok && dev != rootDev {
			return true
		}
	}
	return false
}

func (s *Scanner) matcher(root string) (*IgnoreMatcher, error) {
	patterns := append([]string{}, defaultIgnorePatterns...)
	patterns = append(patterns, s.opts.Exclude...)

	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, filePatterns...)
	return NewIgnoreMatcher(patterns), nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
