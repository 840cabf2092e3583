package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"tidy-go/internal/tidy"
)

func TestRegistry_Observe(t *testing.T) {
	r := New()

	r.ObserveScan(12, 30*time.Millisecond)
	r.ObserveScan(3, time.Millisecond)
	r.ObserveHash(tidy.HashSHA256, 4096)
	r.ObserveAction(tidy.ActionMove, tidy.ProgressSucceeded, 100, time.Millisecond)
	r.ObserveAction(tidy.ActionMove, tidy.ProgressSucceeded, 50, time.Millisecond)
	r.ObserveAction(tidy.ActionMove, tidy.ProgressFailed, 999, time.Millisecond)
	r.ObserveRevert(tidy.EntryReverted)
	r.ObserveRevert(tidy.EntryFailed)
	r.ObserveRevert(tidy.EntryReverted)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"scanned files", promtest.ToFloat64(r.scannedFiles), 15},
		{"hashed bytes", promtest.ToFloat64(r.hashedBytes.WithLabelValues(tidy.HashSHA256)), 4096},
		{"moves succeeded", promtest.ToFloat64(r.actionsTotal.WithLabelValues("move", "succeeded")), 2},
		{"moves failed", promtest.ToFloat64(r.actionsTotal.WithLabelValues("move", "failed")), 1},
		{"action bytes", promtest.ToFloat64(r.actionBytes), 150},
		{"reverted", promtest.ToFloat64(r.revertsTotal.WithLabelValues("reverted")), 2},
		{"revert failed", promtest.ToFloat64(r.revertsTotal.WithLabelValues("failed")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveAction(tidy.ActionCopy, tidy.ProgressSucceeded, 10, time.Millisecond)

	path := filepath.Join(t.TempDir(), "textfile", "tidy.prom")
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := r.WriteTextfile(path, now); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`tidy_actions_total{kind="copy",status="succeeded"} 1`,
		"tidy_action_bytes_total 10",
		"tidy_last_run_timestamp_seconds ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}
