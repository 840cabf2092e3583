package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tidy-go/internal/testutil"
	"tidy-go/internal/tidy"
)

func TestNewRun(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{
			name:       "with parameters",
			operation:  OpApply,
			parameters: "/home/user/Downloads mode=copy",
		},
		{
			name:       "empty parameters",
			operation:  OpUndo,
			parameters: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := newRun(tt.operation, tt.parameters, testutil.NewStubIDGenerator())

			if run.Operation != tt.operation {
				t.Errorf("Operation = %q, want %q", run.Operation, tt.operation)
			}
			if run.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", run.Parameters, tt.parameters)
			}
			if run.UUID == "" {
				t.Error("UUID is empty")
			}
			if run.Persisted() {
				t.Errorf("new run should not be persisted, ID = %d", run.ID)
			}
		})
	}
}

func TestApplyOutcome(t *testing.T) {
	tests := []struct {
		name   string
		report *tidy.Report
		err    error
		want   tidy.RunStatus
	}{
		{"all moved", &tidy.Report{Moved: 3}, nil, tidy.RunSucceeded},
		{"nothing to do", &tidy.Report{Skipped: 2}, nil, tidy.RunSucceeded},
		{"some failed", &tidy.Report{Moved: 2, Failed: 1}, nil, tidy.RunPartial},
		{"all failed", &tidy.Report{Failed: 2}, nil, tidy.RunFailed},
		{"error", nil, errors.New("boom"), tidy.RunFailed},
		{"canceled", &tidy.Report{Moved: 1, Canceled: 4}, fmt.Errorf("executing plan: %w", context.Canceled), tidy.RunCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &tidy.Run{}
			applyOutcome(run, tt.report, tt.err)
			if run.Status != tt.want {
				t.Errorf("Status = %q, want %q", run.Status, tt.want)
			}
			if tt.report != nil && (run.Succeeded != tt.report.Succeeded() || run.Failed != tt.report.Failed) {
				t.Errorf("counts = %d/%d, want %d/%d", run.Succeeded, run.Failed, tt.report.Succeeded(), tt.report.Failed)
			}
		})
	}
}

func TestRevertOutcome(t *testing.T) {
	tests := []struct {
		name string
		rr   *tidy.RevertReport
		err  error
		want tidy.RunStatus
	}{
		{"all reverted", &tidy.RevertReport{Reverted: 4}, nil, tidy.RunSucceeded},
		{"empty log", &tidy.RevertReport{}, nil, tidy.RunSucceeded},
		{"some stale", &tidy.RevertReport{Reverted: 3, Failed: 1}, nil, tidy.RunPartial},
		{"all stale", &tidy.RevertReport{Failed: 2}, nil, tidy.RunFailed},
		{"error", nil, errors.New("db gone"), tidy.RunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &tidy.Run{}
			revertOutcome(run, tt.rr, tt.err)
			if run.Status != tt.want {
				t.Errorf("Status = %q, want %q", run.Status, tt.want)
			}
		})
	}
}
