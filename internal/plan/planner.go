// Package plan turns classified records into an ordered, collision-free
// organization plan. Planning only reads the filesystem.
package plan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"tidy-go/internal/tidy"
)

// DefaultMaxSuffix bounds the "name (n).ext" search.
const DefaultMaxSuffix = 1000

// Item is a record with its category.
type Item struct {
	Record   *tidy.FileRecord
	Category string
}

// Options configures one planning run.
type Options struct {
	Root      string
	DestRoot  string // empty means Root
	Mode      tidy.Transfer
	DateMode  tidy.DateMode
	MaxSuffix int // <= 0 means DefaultMaxSuffix

	// Duplicates, when set, turn every member but the first of each group
	// into a Skip.
	Duplicates []tidy.DuplicateGroup

	Snapshot tidy.PlanSnapshot
}

// Planner builds plans.
type Planner struct {
	fsmgr  tidy.FilesystemManager
	clock  tidy.Clock
	ids    tidy.IDGenerator
	logger tidy.Logger
}

// NewPlanner creates a planner probing destinations through fsmgr.
func NewPlanner(fsmgr tidy.FilesystemManager, clock tidy.Clock, ids tidy.IDGenerator, logger tidy.Logger) *Planner {
	if logger == nil {
		logger = tidy.NewNopLogger()
	}
	return &Planner{fsmgr: fsmgr, clock: clock, ids: ids, logger: logger}
}

// Build plans items. Records are processed in lexical path order, so the
// same inputs against the same disk state always give the same plan.
func (p *Planner) Build(items []Item, opts Options) (*tidy.Plan, error) {
	if err := validate(&opts); err != nil {
		return nil, err
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Record.Path < sorted[j].Record.Path
	})

	redundant := make(map[string]string) // duplicate path -> kept path
	for _, g := range opts.Duplicates {
		if len(g.Records) < 2 {
			continue
		}
		for _, r := range g.Redundant() {
			redundant[r.Path] = g.Records[0].Path
		}
	}

	plan := &tidy.Plan{
		ID:        p.ids.New(),
		CreatedAt: p.clock.Now(),
		Root:      opts.Root,
		DestRoot:  opts.DestRoot,
		Mode:      opts.Mode,
		Snapshot:  opts.Snapshot,
	}
	plan.Snapshot.DateMode = opts.DateMode
	plan.Snapshot.SkipDuplicates = opts.Duplicates != nil

	claimed := make(map[string]bool)
	seen := make(map[string]bool, len(sorted))
	for _, it := range sorted {
		r := it.Record
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true

		base := tidy.Action{
			Transfer: opts.Mode,
			Source:   r.Path,
			Category: it.Category,
			Size:     r.Size,
			ModTime:  r.ModTime,
			Record:   r,
		}

		if kept, ok := redundant[r.Path]; ok {
			a := base
			a.Kind = tidy.ActionSkip
			a.Reason = fmt.Sprintf("%s %s", tidy.SkipDuplicate, kept)
			plan.Actions = append(plan.Actions, a)
			continue
		}

		a, err := p.place(base, it.Category, opts, claimed)
		if err != nil {
			p.logger.Warn("cannot plan file", "path", r.Path, "error", err)
			plan.Issues = append(plan.Issues, tidy.Issue{Path: r.Path, Message: err.Error(), Err: err})
			continue
		}
		plan.Actions = append(plan.Actions, a)
	}

	s := plan.Summary()
	p.logger.Info("plan built", "plan", plan.ID, "moves", s.Moves, "copies", s.Copies,
		"renames", s.Renames, "skips", s.Skips, "issues", s.Issues)
	return plan, nil
}

// place finds the destination for one record and claims it.
func (p *Planner) place(a tidy.Action, category string, opts Options, claimed map[string]bool) (tidy.Action, error) {
	r := a.Record
	dir := filepath.Join(opts.DestRoot, category)
	if opts.DateMode == tidy.DateSubfolder {
		dir = filepath.Join(dir, r.DateFolder())
	}
	stem, ext := splitName(r.Name())

	for n := 0; n <= opts.MaxSuffix; n++ {
		name := stem + ext
		if n > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		dest := filepath.Join(dir, name)

		if dest == r.Path {
			a.Kind = tidy.ActionSkip
			a.Destination = dest
			a.Reason = tidy.SkipInPlace
			return a, nil
		}
		if claimed[dest] {
			continue
		}

		info, err := p.fsmgr.Stat(dest)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return a, &tidy.AccessError{Op: "stat", Path: dest, Err: err}
		}
		if err == nil {
			same, err := p.sameContent(r, dest, info)
			if err != nil {
				return a, err
			}
			if same {
				a.Kind = tidy.ActionSkip
				a.Destination = dest
				a.Reason = tidy.SkipIdentical
				return a, nil
			}
			continue
		}

		claimed[dest] = true
		a.Destination = dest
		switch {
		case n > 0:
			a.Kind = tidy.ActionRename
		case opts.Mode == tidy.TransferCopy:
			a.Kind = tidy.ActionCopy
		default:
			a.Kind = tidy.ActionMove
		}
		return a, nil
	}

	return a, &tidy.CollisionResolutionError{Path: r.Path, Attempts: opts.MaxSuffix}
}

// sameContent reports whether the existing file at dest is byte-identical
// to the record.
func (p *Planner) sameContent(r *tidy.FileRecord, dest string, info fs.FileInfo) (bool, error) {
	if !info.Mode().IsRegular() || info.Size() != r.Size {
		return false, nil
	}
	srcSum, err := p.hash(r.Path)
	if err != nil {
		return false, err
	}
	dstSum, err := p.hash(dest)
	if err != nil {
		return false, err
	}
	return srcSum == dstSum, nil
}

func (p *Planner) hash(path string) (string, error) {
	f, err := p.fsmgr.Open(path)
	if err != nil {
		return "", &tidy.AccessError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	sum, _, err := tidy.HashReader(tidy.SHA256, f)
	if err != nil {
		return "", &tidy.AccessError{Op: "hash", Path: path, Err: err}
	}
	return sum, nil
}

func validate(opts *Options) error {
	if opts.Root == "" || !filepath.IsAbs(opts.Root) {
		return &tidy.ValidationError{Field: "root", Reason: "must be an absolute path"}
	}
	opts.Root = filepath.Clean(opts.Root)
	if opts.DestRoot == "" {
		opts.DestRoot = opts.Root
	}
	if !filepath.IsAbs(opts.DestRoot) {
		return &tidy.ValidationError{Field: "dest_root", Reason: "must be an absolute path"}
	}
	opts.DestRoot = filepath.Clean(opts.DestRoot)
	if opts.Mode == "" {
		opts.Mode = tidy.TransferMove
	}
	if opts.Mode != tidy.TransferMove && opts.Mode != tidy.TransferCopy {
		return &tidy.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", opts.Mode)}
	}
	if opts.DateMode == "" {
		opts.DateMode = tidy.DateOff
	}
	if opts.MaxSuffix <= 0 {
		opts.MaxSuffix = DefaultMaxSuffix
	}
	return nil
}

// splitName splits "report.final.txt" into "report.final" and ".txt".
// Names that are only an extension, such as ".bashrc", keep it as the stem.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}

// Write renders a plan as a plain list, one action per line.
func Write(w io.Writer, p *tidy.Plan) error {
	for _, a := range p.Actions {
		var err error
		if a.Kind == tidy.ActionSkip {
			_, err = fmt.Fprintf(w, "%-6s %s (%s)\n", a.Kind, a.Source, a.Reason)
		} else {
			_, err = fmt.Fprintf(w, "%-6s %s -> %s\n", a.Kind, a.Source, a.Destination)
		}
		if err != nil {
			return err
		}
	}
	for _, is := range p.Issues {
		if _, err := fmt.Fprintf(w, "error  %s: %s\n", is.Path, is.Message); err != nil {
			return err
		}
	}
	return nil
}
