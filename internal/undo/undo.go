// Package undo reverts completed actions recorded in the undo log.
package undo

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"tidy-go/internal/tidy"
)

// Config wires a Manager. Log, Transferer and Filesystem are required.
type Config struct {
	Log        tidy.UndoLog
	Transferer tidy.Transferer
	Filesystem tidy.FilesystemManager
	Logger     tidy.Logger
	Metrics    tidy.Metrics
}

// Manager reverts logged actions, newest first. Entries are never deleted
// by a revert; they are marked so the log stays an audit trail.
type Manager struct {
	log     tidy.UndoLog
	tr      tidy.Transferer
	fsmgr   tidy.FilesystemManager
	logger  tidy.Logger
	metrics tidy.Metrics
}

func New(cfg Config) *Manager {
	m := &Manager{
		log:     cfg.Log,
		tr:      cfg.Transferer,
		fsmgr:   cfg.Filesystem,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if m.logger == nil {
		m.logger = tidy.NewNopLogger()
	}
	if m.metrics == nil {
		m.metrics = tidy.NopMetrics{}
	}
	return m
}

// Revert undoes the last n entries that are still Done.
func (m *Manager) Revert(n int) (*tidy.RevertReport, error) {
	if n <= 0 {
		return nil, &tidy.ValidationError{Field: "count", Reason: fmt.Sprintf("must be positive, got %d", n)}
	}
	entries, err := m.log.Entries(tidy.EntryDone)
	if err != nil {
		return nil, fmt.Errorf("reading undo log: %w", err)
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return m.revert(entries), nil
}

// RevertAll undoes every entry not already reverted. Entries whose earlier
// revert failed are retried.
func (m *Manager) RevertAll() (*tidy.RevertReport, error) {
	entries, err := m.log.Entries(tidy.EntryDone, tidy.EntryFailed)
	if err != nil {
		return nil, fmt.Errorf("reading undo log: %w", err)
	}
	return m.revert(entries), nil
}

// History returns every entry in the log, oldest first.
func (m *Manager) History() ([]*tidy.UndoEntry, error) {
	entries, err := m.log.Entries()
	if err != nil {
		return nil, fmt.Errorf("reading undo log: %w", err)
	}
	return entries, nil
}

// Pending returns how many entries a RevertAll would attempt.
func (m *Manager) Pending() (int, error) {
	entries, err := m.log.Entries(tidy.EntryDone, tidy.EntryFailed)
	if err != nil {
		return 0, fmt.Errorf("reading undo log: %w", err)
	}
	return len(entries), nil
}

// Clear drops the whole log. Nothing on disk changes.
func (m *Manager) Clear() error {
	if err := m.log.Clear(); err != nil {
		return err
	}
	m.logger.Info("undo log cleared")
	return nil
}

// revert walks entries newest first. A failure marks that entry Failed and
// the batch goes on.
func (m *Manager) revert(entries []*tidy.UndoEntry) *tidy.RevertReport {
	report := &tidy.RevertReport{}
	folders := m.createdFolders(entries)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := m.revertOne(e, folders.above(e)); err != nil {
			m.logger.Warn("revert failed", "id", e.ID, "destination", e.Destination, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, tidy.RevertFailure{Entry: e, Err: err})
			m.metrics.ObserveRevert(tidy.EntryFailed)
			if markErr := m.log.MarkStatus(e.ID, tidy.EntryFailed, err.Error()); markErr != nil {
				m.logger.Error("marking entry failed", "id", e.ID, "error", markErr)
			}
			continue
		}
		if err := m.log.MarkStatus(e.ID, tidy.EntryReverted, ""); err != nil {
			// The file is back but the log still says Done; a later revert
			// sees the result missing and reports it stale.
			m.logger.Error("marking entry reverted", "id", e.ID, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, tidy.RevertFailure{Entry: e, Err: err})
			continue
		}
		m.logger.Debug("reverted", "id", e.ID, "source", e.Source, "destination", e.Destination)
		report.Reverted++
		m.metrics.ObserveRevert(tidy.EntryReverted)
	}
	m.logger.Info("revert finished", "reverted", report.Reverted, "failed", report.Failed)
	return report
}

// revertOne restores e and then removes whichever of prune are left empty.
func (m *Manager) revertOne(e *tidy.UndoEntry, prune []string) error {
	if !e.Reversible() {
		return nil
	}
	if err := m.checkResult(e); err != nil {
		return err
	}

	switch e.Transfer {
	case tidy.TransferCopy:
		if err := m.tr.Remove(e.Destination); err != nil {
			return fmt.Errorf("removing copy: %w", err)
		}
	default:
		_, err := m.fsmgr.Stat(e.Source)
		if err == nil {
			return &tidy.StaleUndoError{Path: e.Source, Reason: "original path is occupied"}
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return &tidy.AccessError{Op: "stat", Path: e.Source, Err: err}
		}
		if _, err := m.tr.Move(e.Destination, e.Source); err != nil {
			return fmt.Errorf("moving back: %w", err)
		}
	}

	if e.Root != "" && len(prune) > 0 {
		if err := m.tr.PruneEmptyDirs(prune, e.Root); err != nil {
			m.logger.Warn("pruning folders", "dirs", prune, "error", err)
		}
	}
	return nil
}

// runFolders maps a run ID to the set of folders that run created.
type runFolders map[string]map[string]bool

// createdFolders collects the folders created by every logged action. Workers
// share category folders, so the entry that created one is not always the
// last one reverted out of it.
func (m *Manager) createdFolders(entries []*tidy.UndoEntry) runFolders {
	all, err := m.log.Entries()
	if err != nil {
		m.logger.Warn("reading created folders", "error", err)
		all = entries
	}
	out := make(runFolders)
	for _, e := range all {
		for _, d := range e.CreatedDirs {
			if out[e.RunID] == nil {
				out[e.RunID] = make(map[string]bool)
			}
			out[e.RunID][filepath.Clean(d)] = true
		}
	}
	return out
}

// above returns the folders holding e's destination that e's run created,
// deepest first. Folders that existed before the run are never listed.
func (f runFolders) above(e *tidy.UndoEntry) []string {
	created := f[e.RunID]
	var dirs []string
	for d := filepath.Dir(e.Destination); created[d]; d = filepath.Dir(d) {
		dirs = append(dirs, d)
	}
	return dirs
}

// checkResult verifies the logged result is still what the action left.
// A changed mtime is tolerated when the content hash still matches.
func (m *Manager) checkResult(e *tidy.UndoEntry) error {
	info, err := m.fsmgr.Stat(e.Destination)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &tidy.StaleUndoError{Path: e.Destination, Reason: "result no longer exists"}
		}
		return &tidy.AccessError{Op: "stat", Path: e.Destination, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &tidy.StaleUndoError{Path: e.Destination, Reason: "result is no longer a regular file"}
	}
	if info.Size() != e.Size {
		return &tidy.StaleUndoError{Path: e.Destination, Reason: "result was modified (size changed)"}
	}
	if info.ModTime().Equal(e.ModTime) {
		return nil
	}
	if e.Hash == "" {
		return &tidy.StaleUndoError{Path: e.Destination, Reason: "result was modified (mtime changed)"}
	}
	sum, err := m.hash(e.Destination)
	if err != nil {
		return err
	}
	if sum != e.Hash {
		return &tidy.StaleUndoError{Path: e.Destination, Reason: "result was modified (content changed)"}
	}
	return nil
}

func (m *Manager) hash(path string) (string, error) {
	f, err := m.fsmgr.Open(path)
	if err != nil {
		return "", &tidy.AccessError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	sum, _, err := tidy.HashReader(tidy.SHA256, f)
	if err != nil {
		return "", &tidy.AccessError{Op: "read", Path: path, Err: err}
	}
	return sum, nil
}
