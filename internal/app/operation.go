package app

import (
	"context"
	"errors"

	"tidy-go/internal/tidy"
)

// Operation names recorded in the runs table.
const (
	OpApply      = "Apply"
	OpUndo       = "Undo"
	OpClearLog   = "ClearLog"
	OpPreview    = "Preview"
	OpDuplicates = "Duplicates"
	OpStats      = "Stats"
	OpHistory    = "History"
	OpRestoreLog = "RestoreLog"
	OpKeys       = "Keys"
)

// newRun creates an in-memory run. Only commands that change files or the
// undo log persist it, which gives it an ID from the database.
func newRun(operation, parameters string, ids tidy.IDGenerator) *tidy.Run {
	return &tidy.Run{
		UUID:       ids.New(),
		Operation:  operation,
		Parameters: parameters,
	}
}

// applyOutcome derives the final run status from an execution report.
func applyOutcome(run *tidy.Run, report *tidy.Report, err error) {
	if report != nil {
		run.Succeeded = report.Succeeded()
		run.Failed = report.Failed
	}
	switch {
	case errors.Is(err, context.Canceled):
		run.Status = tidy.RunCanceled
	case err != nil:
		run.Status = tidy.RunFailed
	case report != nil && report.Failed > 0 && report.Succeeded() > 0:
		run.Status = tidy.RunPartial
	case report != nil && report.Failed > 0:
		run.Status = tidy.RunFailed
	default:
		run.Status = tidy.RunSucceeded
	}
}

// revertOutcome derives the final run status from an undo batch.
func revertOutcome(run *tidy.Run, rr *tidy.RevertReport, err error) {
	if rr != nil {
		run.Succeeded = rr.Reverted
		run.Failed = rr.Failed
	}
	switch {
	case err != nil:
		run.Status = tidy.RunFailed
	case rr != nil && rr.Failed > 0 && rr.Reverted > 0:
		run.Status = tidy.RunPartial
	case rr != nil && rr.Failed > 0:
		run.Status = tidy.RunFailed
	default:
		run.Status = tidy.RunSucceeded
	}
}
