package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tidy-go/internal/archive"
	"tidy-go/internal/config"
	"tidy-go/internal/database"
	"tidy-go/internal/encryption"
	"tidy-go/internal/engine"
	"tidy-go/internal/fs"
	"tidy-go/internal/lock"
	"tidy-go/internal/metrics"
	"tidy-go/internal/staging"
	"tidy-go/internal/tidy"
)

// TidyApp is the application layer between the CLI and the engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw options, and manages the run record and DB lifecycle on Close.
type TidyApp struct {
	cfg         *config.Config
	db          *database.SQLiteDatabase
	archive     tidy.Archive
	encryptor   tidy.Encryptor
	snapshotter *archive.Snapshotter
	metrics     *metrics.Registry
	lock        *lock.RunLock
	service     *engine.Service
	clock       tidy.Clock
	logger      tidy.Logger
	run         *tidy.Run
	logFile     *os.File
}

// NewTidyApp creates a fully wired TidyApp from the given config.
// operation identifies the CLI command being run (e.g. OpApply, OpUndo).
// The caller must call Close when done.
func NewTidyApp(cfg *config.Config, operation, parameters string) (*TidyApp, error) {
	clock := tidy.RealClock{}
	ids := tidy.UUIDGenerator{}

	hasher, err := tidy.NewHasher(cfg.Hash)
	if err != nil {
		return nil, &tidy.ValidationError{Field: "hash", Reason: err.Error()}
	}

	plans, err := staging.NewPlanStoreFromConfig(cfg.Staging, clock)
	if err != nil {
		return nil, fmt.Errorf("creating plan staging: %w", err)
	}

	arc, err := archive.NewArchiveFromConfig(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	lockDir := cfg.Database.DataDir
	if lockDir == "" {
		lockDir = cfg.BaseDir
	}
	rl, err := lock.New(lockDir)
	if err != nil {
		return nil, fmt.Errorf("creating run lock: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	// A lost or replaced database would make undo forget recent runs.
	if operation != OpRestoreLog {
		if err := checkArchiveVersion(db, arc); err != nil {
			db.Close()
			return nil, err
		}
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	sl, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	reg := metrics.New()
	svc := engine.NewService(engine.Config{
		Filesystem: fs.NewOSFilesystemManager(),
		Transferer: fs.NewOSTransferer(),
		UndoLog:    db,
		Plans:      plans,
		Hasher:     hasher,
		Workers:    cfg.Workers,
		Logger:     logger,
		Metrics:    reg,
		Clock:      clock,
		IDs:        ids,
	})

	return &TidyApp{
		cfg:         cfg,
		db:          db,
		archive:     arc,
		encryptor:   enc,
		snapshotter: archive.NewSnapshotter(arc, enc),
		metrics:     reg,
		lock:        rl,
		service:     svc,
		clock:       clock,
		logger:      logger,
		run:         newRun(operation, parameters, ids),
		logFile:     logFile,
	}, nil
}

func checkArchiveVersion(db *database.SQLiteDatabase, arc tidy.Archive) error {
	archived, err := archive.LatestRunID(arc)
	if err != nil {
		return fmt.Errorf("checking archived log version: %w", err)
	}
	localMax, err := db.MaxRunID()
	if err != nil {
		return fmt.Errorf("checking local log version: %w", err)
	}
	if archived > localMax {
		return fmt.Errorf("local undo log is behind the archive (local=%d, archive=%d): restore it with 'tidy log restore'", localMax, archived)
	}
	return nil
}

// persistRun takes the run lock and saves the run record, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *TidyApp) persistRun() error {
	if a.run.Persisted() {
		return nil
	}
	if err := a.lock.Acquire(); err != nil {
		return err
	}
	a.run.StartedAt = a.clock.Now()
	if err := a.db.CreateRun(a.run); err != nil {
		a.lock.Release()
		return fmt.Errorf("persisting run: %w", err)
	}
	a.logger.Info("run started", "run", a.run.ID, "operation", a.run.Operation, "parameters", a.run.Parameters)
	return nil
}

// Preview builds the plan for o without touching any file. With save set
// the plan is staged for a later Apply.
func (a *TidyApp) Preview(ctx context.Context, o RunOptions, save bool) (*engine.Preview, error) {
	req, err := a.buildRequest(o)
	if err != nil {
		return nil, err
	}
	pv, err := a.service.Preview(ctx, req)
	if err != nil {
		return nil, err
	}
	if save {
		if err := a.service.Stage(pv.Plan); err != nil {
			return nil, err
		}
	}
	return pv, nil
}

// Organize previews and applies o in one step.
func (a *TidyApp) Organize(ctx context.Context, o RunOptions, progress chan<- tidy.Progress) (*engine.Preview, *tidy.Report, error) {
	req, err := a.buildRequest(o)
	if err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, nil, err
	}
	if err := a.persistRun(); err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, nil, err
	}
	pv, report, err := a.service.Organize(ctx, req, a.run.UUID, progress)
	applyOutcome(a.run, report, err)
	return pv, report, err
}

// StagedPlan returns a staged plan; an empty id selects the latest.
func (a *TidyApp) StagedPlan(id string) (*tidy.Plan, error) {
	return a.service.StagedPlan(id)
}

// ApplyStaged executes a previously staged plan exactly as previewed.
func (a *TidyApp) ApplyStaged(ctx context.Context, p *tidy.Plan, progress chan<- tidy.Progress) (*tidy.Report, error) {
	if err := a.persistRun(); err != nil {
		if progress != nil {
			close(progress)
		}
		return nil, err
	}
	report, err := a.service.Apply(ctx, p, a.run.UUID, progress)
	applyOutcome(a.run, report, err)
	return report, err
}

// Duplicates scans o.Root for identical files.
func (a *TidyApp) Duplicates(ctx context.Context, o RunOptions) (*engine.DuplicateReport, error) {
	req, err := a.buildRequest(o)
	if err != nil {
		return nil, err
	}
	return a.service.FindDuplicates(ctx, req)
}

// Stats summarizes o.Root.
func (a *TidyApp) Stats(ctx context.Context, o RunOptions) (*engine.Stats, error) {
	req, err := a.buildRequest(o)
	if err != nil {
		return nil, err
	}
	return a.service.Stats(ctx, req)
}

// Undo reverts the last n actions, or every pending action when all is set.
func (a *TidyApp) Undo(n int, all bool) (*tidy.RevertReport, error) {
	if err := a.persistRun(); err != nil {
		return nil, err
	}
	var (
		rr  *tidy.RevertReport
		err error
	)
	if all {
		rr, err = a.service.RevertAll()
	} else {
		rr, err = a.service.Revert(n)
	}
	revertOutcome(a.run, rr, err)
	return rr, err
}

// History returns the undo log in append order.
func (a *TidyApp) History() ([]*tidy.UndoEntry, error) {
	return a.service.History()
}

// Pending counts the undo entries that can still be reverted.
func (a *TidyApp) Pending() (int, error) {
	return a.service.Pending()
}

// ClearLog drops every undo entry.
func (a *TidyApp) ClearLog() error {
	if err := a.persistRun(); err != nil {
		return err
	}
	if err := a.service.ClearLog(); err != nil {
		a.run.Status = tidy.RunFailed
		return err
	}
	a.run.Status = tidy.RunSucceeded
	return nil
}

// Runs returns the most recent runs, newest first.
func (a *TidyApp) Runs(limit int) ([]*tidy.Run, error) {
	return a.db.ListRuns(limit)
}

// Snapshots lists the archived undo log snapshots, newest first.
func (a *TidyApp) Snapshots() ([]tidy.ArchiveItem, error) {
	return a.archive.List()
}

// RestoreSnapshot writes the named snapshot to destPath. Encrypted
// snapshots are decrypted with the private key unlocked by passphrase.
func (a *TidyApp) RestoreSnapshot(name, destPath, passphrase string) error {
	var dc tidy.DecryptionContext
	if archive.IsEncrypted(name) {
		if a.encryptor == nil {
			return fmt.Errorf("snapshot %s is encrypted but encryption is disabled", name)
		}
		var err error
		if dc, err = a.encryptor.Unlock(passphrase); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}
	abs, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := a.snapshotter.Restore(name, abs, dc); err != nil {
		return err
	}
	a.logger.Info("snapshot restored", "name", name, "path", abs)
	return nil
}

// SnapshotNeedsPassphrase reports whether restoring name needs the private key.
func (a *TidyApp) SnapshotNeedsPassphrase(name string) bool {
	return archive.IsEncrypted(name)
}

// SetupKeys generates the age key pair protecting log snapshots.
func (a *TidyApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is disabled (encryption.type = \"none\")")
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return err
	}
	a.logger.Info("encryption keys created")
	return nil
}

// KeysConfigured reports whether log snapshots will be encrypted.
func (a *TidyApp) KeysConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// Close finalizes the run and closes all resources.
// For persisted runs: finishes the run record, snapshots the undo log into
// the archive, writes metrics and releases the run lock.
// For non-persisted runs: just closes the database.
func (a *TidyApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.run.Persisted() {
		if a.run.Status == "" || a.run.Status == tidy.RunRunning {
			a.run.Status = tidy.RunSucceeded
		}
		a.run.FinishedAt = a.clock.Now()
		if err := a.db.FinishRun(a.run); err != nil {
			keep(fmt.Errorf("finishing run: %w", err))
		}

		name, err := a.snapshotter.Snapshot(a.db, a.run.ID)
		if err != nil {
			keep(fmt.Errorf("archiving undo log: %w", err))
		} else {
			a.logger.Info("undo log archived", "snapshot", name)
		}

		if path := a.cfg.Metrics.TextfilePath; path != "" {
			keep(a.metrics.WriteTextfile(path, a.clock.Now()))
		}
		a.logger.Info("run finished", "run", a.run.ID, "status", a.run.Status,
			"succeeded", a.run.Succeeded, "failed", a.run.Failed)
	}

	if err := a.db.Close(); err != nil {
		keep(fmt.Errorf("closing database: %w", err))
	}
	keep(a.lock.Release())

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
