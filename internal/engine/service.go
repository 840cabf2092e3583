// Package engine is the orchestration layer that runs the organization
// pipeline for the CLI: scan, classify, filter, dedupe, plan, execute, undo.
package engine

import (
	"context"
	"fmt"
	"time"

	"tidy-go/internal/dupes"
	"tidy-go/internal/execute"
	fsx "tidy-go/internal/fs"
	"tidy-go/internal/plan"
	"tidy-go/internal/tidy"
	"tidy-go/internal/undo"
)

// Config holds the dependencies of a Service.
type Config struct {
	Filesystem tidy.FilesystemManager
	Transferer tidy.Transferer
	UndoLog    tidy.UndoLog
	Plans      tidy.PlanStore // optional; staging is unavailable without it
	Hasher     tidy.Hasher    // duplicate detection; nil means SHA-256
	Workers    int
	Logger     tidy.Logger
	Metrics    tidy.Metrics
	Clock      tidy.Clock
	IDs        tidy.IDGenerator
}

// Service coordinates the engine components.
type Service struct {
	fsmgr    tidy.FilesystemManager
	plans    tidy.PlanStore
	hasher   tidy.Hasher
	workers  int
	logger   tidy.Logger
	metrics  tidy.Metrics
	clock    tidy.Clock
	planner  *plan.Planner
	executor *execute.Executor
	undo     *undo.Manager
}

// NewService creates a Service from cfg. Filesystem, Transferer and UndoLog
// are required.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = tidy.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = tidy.NopMetrics{}
	}
	if cfg.Clock == nil {
		cfg.Clock = tidy.RealClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = tidy.UUIDGenerator{}
	}
	if cfg.Hasher == nil {
		cfg.Hasher = tidy.SHA256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = execute.DefaultWorkers
	}

	return &Service{
		fsmgr:   cfg.Filesystem,
		plans:   cfg.Plans,
		hasher:  cfg.Hasher,
		workers: cfg.Workers,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		planner: plan.NewPlanner(cfg.Filesystem, cfg.Clock, cfg.IDs, cfg.Logger),
		executor: execute.New(execute.Config{
			Transferer: cfg.Transferer,
			Filesystem: cfg.Filesystem,
			UndoLog:    cfg.UndoLog,
			Clock:      cfg.Clock,
			Logger:     cfg.Logger,
			Metrics:    cfg.Metrics,
			Workers:    cfg.Workers,
		}),
		undo: undo.New(undo.Config{
			Log:        cfg.UndoLog,
			Transferer: cfg.Transferer,
			Filesystem: cfg.Filesystem,
			Logger:     cfg.Logger,
			Metrics:    cfg.Metrics,
		}),
	}
}

// scan collects the records under the prepared root.
func (s *Service) scan(ctx context.Context, pr *prepared) ([]*tidy.FileRecord, []error, error) {
	scanner := fsx.NewScanner(fsx.ScanOptions{
		Recursive:     pr.req.Recursive,
		Exclude:       pr.req.Exclude,
		SkipHidden:    pr.req.SkipHidden,
		OneFilesystem: pr.req.OneFilesystem,
		CaptureDates:  pr.req.CaptureDates,
	})

	start := time.Now()
	var records []*tidy.FileRecord
	var errs []error
	for rec, err := range scanner.Scan(pr.root) {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if err != nil {
			s.logger.Warn("scan error", "error", err)
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	s.metrics.ObserveScan(len(records), time.Since(start))
	s.logger.Debug("scan finished", "root", pr.root, "files", len(records), "errors", len(errs))
	return records, errs, nil
}

func (s *Service) detector() *dupes.Detector {
	return dupes.New(dupes.Options{Hasher: s.hasher, Workers: s.workers, Metrics: s.metrics})
}

// Revert undoes the last n completed actions.
func (s *Service) Revert(n int) (*tidy.RevertReport, error) {
	return s.undo.Revert(n)
}

// RevertAll undoes every action that has not been reverted yet.
func (s *Service) RevertAll() (*tidy.RevertReport, error) {
	return s.undo.RevertAll()
}

// History returns the undo log in append order.
func (s *Service) History() ([]*tidy.UndoEntry, error) {
	return s.undo.History()
}

// Pending counts the entries RevertAll would attempt.
func (s *Service) Pending() (int, error) {
	return s.undo.Pending()
}

// ClearLog forgets every undo entry. Files stay where they are.
func (s *Service) ClearLog() error {
	return s.undo.Clear()
}

// StagedPlan loads a previously saved plan. An empty id selects the latest.
func (s *Service) StagedPlan(id string) (*tidy.Plan, error) {
	if s.plans == nil {
		return nil, fmt.Errorf("plan staging is not configured")
	}
	var (
		p   *tidy.Plan
		err error
	)
	if id == "" {
		p, err = s.plans.Latest()
	} else {
		p, err = s.plans.Load(id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading staged plan: %w", err)
	}
	if p == nil {
		if id == "" {
			return nil, fmt.Errorf("no staged plans")
		}
		return nil, fmt.Errorf("staged plan not found: %s", id)
	}
	return p, nil
}
