package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCollects(t *testing.T) {
	r := New()
	r.ObserveStage("clean", 120*time.Millisecond, nil)
	r.ObserveStage("features", time.Second, errors.New("boom"))
	r.SetRows("clean", 10, 8)
	r.SetQuality(97.5)
	r.FinishRun(time.Unix(1700000000, 0), nil)

	assert.Equal(t, 8.0, testutil.ToFloat64(r.stageRows.WithLabelValues("clean", "out")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.stageRows.WithLabelValues("clean", "in")))
	assert.Equal(t, 97.5, testutil.ToFloat64(r.quality))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.stageDuration))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.SetQuality(88)
	path := filepath.Join(t.TempDir(), "metrics", "retention.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "retention_quality_score 88")
}
