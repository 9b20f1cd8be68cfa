package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/metrics"
	"github.com/KaramelBytes/retention-cli/internal/report"
	"github.com/KaramelBytes/retention-cli/internal/store"
	"github.com/KaramelBytes/retention-cli/internal/synth"
	"github.com/KaramelBytes/retention-cli/internal/workspace"
)

// fakeClock advances one second per Now call and fires After immediately.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func writeRaw(t *testing.T, dir string, d *dataset.Dataset) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "telecom_customer_data.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, store.WriteCSV(f, d))
	return path
}

func rawData() *dataset.Dataset {
	return synth.Generate(synth.Options{Rows: 300, Seed: 1, MissingRate: 0.01, PaddedRate: 0.02, DuplicateRate: 0.02})
}

func newTestPipeline(t *testing.T, root string, cfg Config, opts ...Option) (*Pipeline, store.Store) {
	t.Helper()
	st, err := store.NewCSVStore(filepath.Join(root, "db"))
	require.NoError(t, err)
	opts = append([]Option{WithClock(newFakeClock())}, opts...)
	return New(st, cfg, opts...), st
}

func TestRunProducesTablesAndReports(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.Init(filepath.Join(root, "ws"), "demo", "")
	require.NoError(t, err)
	writeRaw(t, ws.Path(workspace.DirRaw), rawData())

	cfg := DefaultConfig()
	cfg.RawDir = ws.Path(workspace.DirRaw)
	cfg.ExportDir = ws.Path(workspace.DirProcessed)
	cfg.ReportDir = ws.Path(workspace.DirReports)
	cfg.MetricsTextfile = filepath.Join(root, "retention.prom")
	rec := metrics.New()
	p, st := newTestPipeline(t, root, cfg, WithMetrics(rec), WithWorkspace(ws))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 306, res.Ingested)
	require.NotNil(t, res.Clean)
	assert.Equal(t, 300, res.Clean.FinalRows)
	require.NotNil(t, res.Features)
	assert.Equal(t, 300, res.Features.Rows)
	require.NotNil(t, res.Audit)
	assert.Equal(t, 300, res.Audit.Rows)
	assert.Len(t, res.Artifacts, 2)

	for _, table := range []string{"raw_customer_data", "cleaned_customer_data", "final_customer_data"} {
		n, err := st.Count(context.Background(), table)
		require.NoError(t, err, table)
		assert.Positive(t, n)
	}
	assert.FileExists(t, filepath.Join(cfg.ExportDir, "cleaned_customer_data.csv"))
	assert.FileExists(t, filepath.Join(cfg.ExportDir, "final_customer_data.csv"))
	assert.FileExists(t, filepath.Join(cfg.ReportDir, report.MarkdownFile))

	run := res.Run
	assert.Equal(t, workspace.RunSucceeded, run.Status)
	require.Len(t, run.Stages, 4)
	for i, s := range run.Stages {
		assert.Equal(t, Stages[i], s.Name)
		assert.Equal(t, metrics.StatusSuccess, s.Status)
	}
	assert.Equal(t, 306, run.Stages[1].RowsIn)
	assert.Equal(t, 300, run.Stages[1].RowsOut)

	reloaded, err := workspace.Load(ws.RootDir())
	require.NoError(t, err)
	require.Len(t, reloaded.Runs, 1)
	assert.Equal(t, run.ID, reloaded.Runs[0].ID)

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `retention_runs_total{status="success"} 1`)
}

func TestRunHaltsOnFirstFailure(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.RawDir = filepath.Join(root, "raw")
	require.NoError(t, os.MkdirAll(cfg.RawDir, 0o755))
	p, st := newTestPipeline(t, root, cfg)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageIngest, se.Stage)
	assert.True(t, errors.Is(err, ErrNoSource))
	assert.Equal(t, workspace.RunFailed, res.Run.Status)
	require.Len(t, res.Run.Stages, 1)
	assert.Nil(t, res.Clean)

	tables, err := st.Tables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestRunRejectsEmptySource(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "empty.csv")
	require.NoError(t, os.WriteFile(src, []byte("customerID,Tenure\n"), 0o644))
	cfg := DefaultConfig()
	cfg.Source = src
	p, _ := newTestPipeline(t, root, cfg)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrValidation))
	assert.True(t, strings.HasPrefix(err.Error(), "ingest stage failed"))
}

func TestStagesRunIndividually(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Source = writeRaw(t, filepath.Join(root, "raw"), rawData())
	p, _ := newTestPipeline(t, root, cfg)
	ctx := context.Background()

	_, err := p.Features(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTableNotFound))

	n, err := p.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 306, n)
	_, err = p.Clean(ctx)
	require.NoError(t, err)
	_, err = p.Features(ctx)
	require.NoError(t, err)
	rep, paths, err := p.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Equal(t, 300, rep.Rows)
}

func TestCancelledContextStopsBeforeStage(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Source = writeRaw(t, filepath.Join(root, "raw"), rawData())
	p, _ := newTestPipeline(t, root, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := p.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Run.Stages)
}

func TestLatestSourcePicksNewest(t *testing.T) {
	dir := t.TempDir()
	_, err := LatestSource(dir)
	assert.True(t, errors.Is(err, ErrNoSource))

	old := filepath.Join(dir, "old.csv")
	newer := filepath.Join(dir, "new.tsv")
	require.NoError(t, os.WriteFile(old, []byte("a\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("a\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	got, err := LatestSource(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestWatchRunsOncePerNewFile(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.RawDir = filepath.Join(root, "raw")
	writeRaw(t, cfg.RawDir, rawData())
	p, _ := newTestPipeline(t, root, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runs := 0
	err := p.Watch(ctx, time.Millisecond, func(res *Result, err error) {
		runs++
		require.NoError(t, err)
		assert.Equal(t, 300, res.Audit.Rows)
		cancel()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestWatchRequiresRawDir(t *testing.T) {
	p, _ := newTestPipeline(t, t.TempDir(), DefaultConfig())
	err := p.Watch(context.Background(), time.Second, nil)
	assert.True(t, errors.Is(err, ErrNoSource))
}
