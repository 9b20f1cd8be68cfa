// Package metrics records pipeline run measurements in a private prometheus
// registry and exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retention"

// Stage outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Recorder holds the pipeline collectors.
type Recorder struct {
	reg *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRows     *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	quality       prometheus.Gauge
	lastRun       prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage", "status"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Records entering and leaving each stage in the last run.",
		}, []string{"stage", "direction"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		quality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Data quality score of the last audited dataset.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.reg.MustRegister(r.stageDuration, r.stageRows, r.runs, r.quality, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveStage records one stage execution.
func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	r.stageDuration.WithLabelValues(stage, status(err)).Observe(d.Seconds())
}

// SetRows records the record counts of a stage.
func (r *Recorder) SetRows(stage string, in, out int) {
	r.stageRows.WithLabelValues(stage, "in").Set(float64(in))
	r.stageRows.WithLabelValues(stage, "out").Set(float64(out))
}

// SetQuality records the audit score.
func (r *Recorder) SetQuality(score float64) { r.quality.Set(score) }

// FinishRun counts a run and stamps its completion time.
func (r *Recorder) FinishRun(at time.Time, err error) {
	r.runs.WithLabelValues(status(err)).Inc()
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSuccess
}
