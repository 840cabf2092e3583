// Package metrics provides Prometheus metrics for tidy runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tidy-go/internal/tidy"
)

// Registry collects engine metrics on its own prometheus registry so that
// each run's textfile only holds tidy series.
type Registry struct {
	reg *prometheus.Registry

	scannedFiles   prometheus.Counter
	scanDuration   prometheus.Histogram
	hashedBytes    *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
	actionBytes    prometheus.Counter
	actionDuration *prometheus.HistogramVec
	revertsTotal   *prometheus.CounterVec
	lastRun        prometheus.Gauge
}

// New creates a Registry with all tidy collectors registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		scannedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidy_scanned_files_total",
			Help: "Total number of files produced by directory scans",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tidy_scan_duration_seconds",
			Help:    "Time to scan a directory tree",
			Buckets: prometheus.DefBuckets,
		}),
		hashedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidy_hashed_bytes_total",
			Help: "Bytes read while hashing file contents",
		}, []string{"algorithm"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidy_actions_total",
			Help: "Executed plan actions by kind and outcome",
		}, []string{"kind", "status"}),
		actionBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidy_action_bytes_total",
			Help: "Bytes moved or copied by successful actions",
		}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tidy_action_duration_seconds",
			Help:    "Time to execute one plan action",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		revertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidy_reverts_total",
			Help: "Undo log entries processed by outcome",
		}, []string{"status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidy_last_run_timestamp_seconds",
			Help: "Unix time the metrics were last written",
		}),
	}
	r.reg.MustRegister(
		r.scannedFiles,
		r.scanDuration,
		r.hashedBytes,
		r.actionsTotal,
		r.actionBytes,
		r.actionDuration,
		r.revertsTotal,
		r.lastRun,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveScan(files int, d time.Duration) {
	r.scannedFiles.Add(float64(files))
	r.scanDuration.Observe(d.Seconds())
}

func (r *Registry) ObserveHash(algorithm string, bytes int64) {
	r.hashedBytes.WithLabelValues(algorithm).Add(float64(bytes))
}

func (r *Registry) ObserveAction(kind tidy.ActionKind, status tidy.ProgressStatus, bytes int64, d time.Duration) {
	r.actionsTotal.WithLabelValues(string(kind), string(status)).Inc()
	if status == tidy.ProgressSucceeded {
		r.actionBytes.Add(float64(bytes))
		r.actionDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
}

func (r *Registry) ObserveRevert(status tidy.EntryStatus) {
	r.revertsTotal.WithLabelValues(string(status)).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	r.lastRun.Set(float64(now.Unix()))
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

var _ tidy.Metrics = (*Registry)(nil)
