package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"tidy-go/internal/engine"
	"tidy-go/internal/tidy"
)

var (
	bold   = color.New(color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// showProgress returns a channel for executor events and a channel that is
// closed once every event has been drawn. The bar is only shown on a terminal.
func showProgress(desc string) (chan tidy.Progress, <-chan struct{}) {
	events := make(chan tidy.Progress)
	done := make(chan struct{})
	tty := isatty.IsTerminal(os.Stderr.Fd())

	go func() {
		defer close(done)
		var bar *progressbar.ProgressBar
		for ev := range events {
			if !tty {
				continue
			}
			if bar == nil {
				bar = progressbar.Default(int64(ev.Total), desc)
			}
			bar.Add(1)
		}
		if bar != nil {
			bar.Finish()
		}
	}()
	return events, done
}

func rel(base, path string) string {
	if r, err := filepath.Rel(base, path); err == nil {
		return r
	}
	return path
}

func printPlan(w io.Writer, pv *engine.Preview, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pv.Plan)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(pv.Plan)
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
	}

	p := pv.Plan
	byCategory := p.ByCategory()
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		actions := byCategory[c]
		var size int64
		for _, a := range actions {
			size += a.Size
		}
		cyan.Fprintf(w, "%s", c)
		fmt.Fprintf(w, " (%d, %s)\n", len(actions), humanBytes(size))
		for _, a := range actions {
			kind := green
			if a.Kind == tidy.ActionRename {
				kind = yellow
			}
			kind.Fprintf(w, "  %-6s", a.Kind)
			fmt.Fprintf(w, " %s -> %s\n", rel(p.Root, a.Source), rel(p.DestRoot, a.Destination))
		}
	}

	var skipped []tidy.Action
	for _, a := range p.Actions {
		if !a.Mutates() {
			skipped = append(skipped, a)
		}
	}
	if len(skipped) > 0 {
		bold.Fprintf(w, "Skipped (%d)\n", len(skipped))
		for _, a := range skipped {
			faint.Fprintf(w, "  %s: %s\n", rel(p.Root, a.Source), a.Reason)
		}
	}

	if len(p.Issues) > 0 {
		red.Fprintf(w, "Not planned (%d)\n", len(p.Issues))
		for _, is := range p.Issues {
			fmt.Fprintf(w, "  %s: %s\n", rel(p.Root, is.Path), is.Message)
		}
	}
	for _, err := range pv.ScanErrors {
		yellow.Fprintf(w, "warning: %v\n", err)
	}
	if len(pv.Duplicates) > 0 {
		fmt.Fprintf(w, "%d duplicate group(s) left in place\n", len(pv.Duplicates))
	}
	for _, s := range pv.Suggestions {
		faint.Fprintf(w, "hint: %s has no category; %s files usually go in %q\n", rel(p.Root, s.Path), s.Ext, s.Category)
	}

	sum := p.Summary()
	fmt.Fprintln(w)
	bold.Fprintf(w, "%d of %d file(s) planned", pv.Admitted, pv.Scanned)
	fmt.Fprintf(w, ": %d move(s), %d copy(ies), %d rename(s), %d skipped, %s\n",
		sum.Moves, sum.Copies, sum.Renames, sum.Skips, humanBytes(sum.Bytes))
	return nil
}

func printReport(w io.Writer, r *tidy.Report) {
	for _, f := range r.Failures {
		red.Fprintf(w, "failed: ")
		fmt.Fprintf(w, "%s: %v\n", f.Action.Source, f.Err)
	}
	green.Fprintf(w, "%d file(s) organized", r.Succeeded())
	fmt.Fprintf(w, " (%d moved, %d copied, %d renamed, %s) in %s\n",
		r.Moved, r.Copied, r.Renamed, humanBytes(r.Bytes), r.Duration.Round(time.Millisecond))
	if r.Skipped > 0 {
		fmt.Fprintf(w, "%d skipped\n", r.Skipped)
	}
	if r.Failed > 0 {
		red.Fprintf(w, "%d failed\n", r.Failed)
	}
	if r.Canceled > 0 {
		yellow.Fprintf(w, "%d not started\n", r.Canceled)
	}
}

func printRevert(w io.Writer, rr *tidy.RevertReport) {
	for _, f := range rr.Failures {
		red.Fprintf(w, "not reverted: ")
		fmt.Fprintf(w, "%s: %v\n", f.Entry.Destination, f.Err)
	}
	if rr.Reverted == 0 && rr.Failed == 0 {
		fmt.Fprintln(w, "Nothing to undo.")
		return
	}
	green.Fprintf(w, "%d action(s) reverted\n", rr.Reverted)
}

func printHistory(w io.Writer, entries []*tidy.UndoEntry) {
	for _, e := range entries {
		status := faint
		switch e.Status {
		case tidy.EntryDone:
			status = green
		case tidy.EntryFailed:
			status = red
		}
		fmt.Fprintf(w, "#%-5d %s ", e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"))
		status.Fprintf(w, "%-8s", e.Status)
		fmt.Fprintf(w, " %-6s %s -> %s", e.Kind, e.Source, e.Destination)
		if e.Note != "" {
			faint.Fprintf(w, "  (%s)", e.Note)
		}
		fmt.Fprintln(w)
	}
}

// duplicateView is the structured rendering of one duplicate group.
type duplicateView struct {
	Hash  string   `json:"hash" yaml:"hash"`
	Size  int64    `json:"size" yaml:"size"`
	Keep  string   `json:"keep" yaml:"keep"`
	Dupes []string `json:"duplicates" yaml:"duplicates"`
}

func printDuplicates(w io.Writer, r *engine.DuplicateReport, format string) error {
	views := make([]duplicateView, 0, len(r.Groups))
	for _, g := range r.Groups {
		views = append(views, duplicateView{Hash: g.Hash, Size: g.Size, Keep: g.Paths[0], Dupes: g.Paths[1:]})
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(views)
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
	}

	for _, err := range r.Errors {
		yellow.Fprintf(w, "warning: %v\n", err)
	}
	if len(views) == 0 {
		fmt.Fprintf(w, "No duplicates among %s file(s).\n", humanize.Comma(int64(r.Scanned)))
		return nil
	}
	for _, v := range views {
		cyan.Fprintf(w, "%s", shortHash(v.Hash))
		fmt.Fprintf(w, "  %s x %d\n", humanBytes(v.Size), len(v.Dupes)+1)
		fmt.Fprintf(w, "  keep  %s\n", v.Keep)
		for _, p := range v.Dupes {
			faint.Fprintf(w, "  dup   %s\n", p)
		}
	}
	fmt.Fprintln(w)
	bold.Fprintf(w, "%d group(s), %s reclaimable\n", len(views), humanBytes(r.Wasted))
	return nil
}

func printStats(w io.Writer, st *engine.Stats) {
	for _, err := range st.Errors {
		yellow.Fprintf(w, "warning: %v\n", err)
	}
	bold.Fprintf(w, "%s\n", st.Root)
	fmt.Fprintf(w, "%s file(s), %s\n\n", humanize.Comma(int64(st.TotalFiles)), humanBytes(st.TotalSize))

	cyan.Fprintln(w, "By size")
	for _, r := range st.Ranges {
		fmt.Fprintf(w, "  %-8s %8s  %10s\n", r.Name, humanize.Comma(int64(r.Count)), humanBytes(r.Bytes))
	}
	cyan.Fprintln(w, "By category")
	for _, c := range st.Categories {
		fmt.Fprintf(w, "  %-14s %8s  %10s\n", c.Category, humanize.Comma(int64(c.Files)), humanBytes(c.Bytes))
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func readNewPassphrase() (string, error) {
	first, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	second, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}
