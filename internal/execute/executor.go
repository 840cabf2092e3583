// Package execute runs organization plans against the filesystem.
package execute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tidy-go/internal/tidy"
)

// DefaultWorkers is the worker count used when Config.Workers is not set.
const DefaultWorkers = tidy.DefaultWorkers

var errSourceChanged = errors.New("source changed since the plan was built")

// Config wires an Executor.
type Config struct {
	Transferer tidy.Transferer
	Filesystem tidy.FilesystemManager
	UndoLog    tidy.UndoLog
	Clock      tidy.Clock
	Logger     tidy.Logger
	Metrics    tidy.Metrics
	Workers    int
}

// Executor applies plans with a bounded worker pool. It is the only writer
// of undo entries.
type Executor struct {
	tr      tidy.Transferer
	fsmgr   tidy.FilesystemManager
	undo    tidy.UndoLog
	clock   tidy.Clock
	logger  tidy.Logger
	metrics tidy.Metrics
	workers int

	appendMu sync.Mutex
}

// New creates an Executor. Transferer, Filesystem and UndoLog are required.
func New(cfg Config) *Executor {
	e := &Executor{
		tr:      cfg.Transferer,
		fsmgr:   cfg.Filesystem,
		undo:    cfg.UndoLog,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		workers: cfg.Workers,
	}
	if e.clock == nil {
		e.clock = tidy.RealClock{}
	}
	if e.logger == nil {
		e.logger = tidy.NewNopLogger()
	}
	if e.metrics == nil {
		e.metrics = tidy.NopMetrics{}
	}
	if e.workers <= 0 {
		e.workers = DefaultWorkers
	}
	return e
}

type result struct {
	index    int
	progress tidy.Progress
}

// Run executes every action of p. One Progress per action is sent on
// progress in plan order, and progress is closed before Run returns; pass
// nil to only receive the report. Per-action failures are recorded in the
// report and never stop the run. Cancelling ctx stops scheduling: actions
// already started finish and are logged, the rest are reported Canceled.
// The returned error is ctx.Err() when the run was cut short.
func (e *Executor) Run(ctx context.Context, p *tidy.Plan, runID string, progress chan<- tidy.Progress) (*tidy.Report, error) {
	if progress != nil {
		defer close(progress)
	}

	start := time.Now()
	total := len(p.Actions)
	results := make(chan result, total)

	go func() {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i, a := range p.Actions {
			if ctx.Err() != nil {
				results <- result{i, tidy.Progress{Index: i, Total: total, Action: a, Status: tidy.ProgressCanceled, Err: ctx.Err()}}
				continue
			}
			if !a.Mutates() {
				results <- result{i, tidy.Progress{Index: i, Total: total, Action: a, Status: tidy.ProgressSkipped}}
				continue
			}
			g.Go(func() error {
				// g.Go waits for a free slot, so ctx may have been
				// cancelled while this action was queued.
				if err := ctx.Err(); err != nil {
					results <- result{i, tidy.Progress{Index: i, Total: total, Action: a, Status: tidy.ProgressCanceled, Err: err}}
					return nil
				}
				results <- result{i, e.runOne(p, a, i, total, runID)}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	report := &tidy.Report{PlanID: p.ID}
	pending := make(map[int]tidy.Progress)
	next := 0
	for r := range results {
		pending[r.index] = r.progress
		for {
			pr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			report.Record(pr)
			if progress != nil {
				progress <- pr
			}
			next++
		}
	}
	report.Duration = time.Since(start)

	e.logger.Info("plan executed", "plan", p.ID, "run", runID,
		"succeeded", report.Succeeded(), "skipped", report.Skipped,
		"failed", report.Failed, "canceled", report.Canceled)

	if report.Canceled > 0 {
		return report, ctx.Err()
	}
	return report, nil
}

func (e *Executor) runOne(p *tidy.Plan, a tidy.Action, index, total int, runID string) tidy.Progress {
	started := time.Now()
	pr := tidy.Progress{Index: index, Total: total, Action: a}

	err := e.apply(p, a, runID)
	if err != nil {
		pr.Status = tidy.ProgressFailed
		pr.Err = err
		e.logger.Warn("action failed", "source", a.Source, "destination", a.Destination, "error", err)
	} else {
		pr.Status = tidy.ProgressSucceeded
		e.logger.Debug("action done", "kind", a.Kind, "source", a.Source, "destination", a.Destination)
	}
	e.metrics.ObserveAction(a.Kind, pr.Status, a.Size, time.Since(started))
	return pr
}

func (e *Executor) apply(p *tidy.Plan, a tidy.Action, runID string) error {
	if err := e.checkSource(a); err != nil {
		return err
	}

	var (
		res *tidy.TransferResult
		err error
	)
	switch a.Transfer {
	case tidy.TransferCopy:
		res, err = e.tr.Copy(a.Source, a.Destination)
	default:
		res, err = e.tr.Move(a.Source, a.Destination)
	}

	var partial *tidy.PartialMoveError
	if err != nil && !(errors.As(err, &partial) && res != nil) {
		return err
	}

	entry := &tidy.UndoEntry{
		RunID:       runID,
		Kind:        a.Kind,
		Transfer:    res.Transfer,
		Source:      a.Source,
		Destination: a.Destination,
		Root:        p.DestRoot,
		Size:        res.Size,
		ModTime:     res.ModTime,
		Hash:        res.Hash,
		CreatedAt:   e.clock.Now(),
		Status:      tidy.EntryDone,
		CreatedDirs: res.CreatedDirs,
	}
	if partial != nil {
		entry.Note = "source could not be removed; logged as a copy"
	}

	if appendErr := e.append(entry); appendErr != nil {
		e.compensate(entry)
		return fmt.Errorf("recording undo entry: %w", appendErr)
	}
	return err
}

// checkSource fails the action when the source is gone or differs from the
// state the plan saw.
func (e *Executor) checkSource(a tidy.Action) error {
	info, err := e.fsmgr.Stat(a.Source)
	if err != nil {
		return &tidy.AccessError{Op: "stat", Path: a.Source, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &tidy.AccessError{Op: "stat", Path: a.Source, Err: errors.New("not a regular file")}
	}
	if info.Size() != a.Size || (!a.ModTime.IsZero() && !info.ModTime().Equal(a.ModTime)) {
		return &tidy.AccessError{Op: "verify", Path: a.Source, Err: errSourceChanged}
	}
	return nil
}

func (e *Executor) append(entry *tidy.UndoEntry) error {
	e.appendMu.Lock()
	defer e.appendMu.Unlock()
	return e.undo.Append(entry)
}

// compensate reverses an action whose undo entry could not be stored, so
// no unlogged change is left behind.
func (e *Executor) compensate(entry *tidy.UndoEntry) {
	var err error
	if entry.Transfer == tidy.TransferMove {
		_, err = e.tr.Move(entry.Destination, entry.Source)
	} else {
		err = e.tr.Remove(entry.Destination)
	}
	if err != nil {
		e.logger.Error("could not reverse unlogged action", "source", entry.Source, "destination", entry.Destination, "error", err)
		return
	}
	if err := e.tr.PruneEmptyDirs(entry.CreatedDirs, entry.Root); err != nil {
		e.logger.Warn("pruning folders", "error", err)
	}
}
