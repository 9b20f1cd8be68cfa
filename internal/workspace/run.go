package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Run outcomes.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one pipeline execution.
type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Status     string        `json:"status"`
	Stages     []StageRecord `json:"stages"`
	Artifacts  []string      `json:"artifacts,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// StageRecord is the outcome of one stage within a run.
type StageRecord struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration_ns"`
	RowsIn     int           `json:"rows_in"`
	RowsOut    int           `json:"rows_out"`
	Error      string        `json:"error,omitempty"`
	SkippedOps []string      `json:"skipped,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(started time.Time) *Run {
	return &Run{ID: uuid.NewString(), StartedAt: started, Status: RunRunning}
}

// Finish stamps the outcome.
func (r *Run) Finish(at time.Time, err error) {
	r.FinishedAt = at
	r.Status = RunSucceeded
	if err != nil {
		r.Status = RunFailed
		r.Error = err.Error()
	}
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
