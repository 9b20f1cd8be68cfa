// Package pipeline runs the ingest, clean, features and audit stages against
// a table store, halting at the first failing stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/retention-cli/internal/audit"
	"github.com/KaramelBytes/retention-cli/internal/clean"
	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/features"
	"github.com/KaramelBytes/retention-cli/internal/logging"
	"github.com/KaramelBytes/retention-cli/internal/metrics"
	"github.com/KaramelBytes/retention-cli/internal/report"
	"github.com/KaramelBytes/retention-cli/internal/store"
	"github.com/KaramelBytes/retention-cli/internal/utils"
	"github.com/KaramelBytes/retention-cli/internal/workspace"
)

// Stage names in execution order.
const (
	StageIngest   = "ingest"
	StageClean    = clean.StageName
	StageFeatures = features.StageName
	StageAudit    = audit.StageName
)

// Stages lists the stages Run executes.
var Stages = []string{StageIngest, StageClean, StageFeatures, StageAudit}

// ErrNoSource is returned when ingest has no file to read.
var ErrNoSource = errors.New("no source data file")

// StageError attributes a failure to the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Tables names the tables written by each stage.
type Tables struct {
	Raw     string
	Cleaned string
	Final   string
}

// DefaultTables matches the names analysts query.
func DefaultTables() Tables {
	return Tables{Raw: "raw_customer_data", Cleaned: "cleaned_customer_data", Final: "final_customer_data"}
}

// Config wires stage options and output locations.
type Config struct {
	// Source is the raw file to ingest. When empty the newest file in RawDir is used.
	Source string
	RawDir string
	Tables Tables
	Clean  clean.Options
	Audit  audit.Options
	// ExportDir receives CSV copies of the cleaned and final tables when set.
	ExportDir       string
	ReportDir       string
	ReportFormats   []string
	MetricsTextfile string
}

// DefaultConfig returns production stage settings without output locations.
func DefaultConfig() Config {
	return Config{
		Tables:        DefaultTables(),
		Clean:         clean.DefaultOptions(),
		Audit:         audit.DefaultOptions(),
		ReportFormats: report.DefaultFormats,
	}
}

// Pipeline executes stages against one store.
type Pipeline struct {
	store   store.Store
	cfg     Config
	log     *zap.Logger
	clock   Clock
	metrics *metrics.Recorder
	ws      *workspace.Workspace
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger; stages log through named children.
func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(p *Pipeline) { p.clock = c } }

// WithMetrics records stage timings and row counts.
func WithMetrics(m *metrics.Recorder) Option { return func(p *Pipeline) { p.metrics = m } }

// WithWorkspace records each full run in the workspace history.
func WithWorkspace(w *workspace.Workspace) Option { return func(p *Pipeline) { p.ws = w } }

// New builds a pipeline over st.
func New(st store.Store, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{store: st, cfg: cfg, log: logging.Nop(), clock: SystemClock{}}
	for _, o := range opts {
		o(p)
	}
	if p.cfg.Tables == (Tables{}) {
		p.cfg.Tables = DefaultTables()
	}
	if p.cfg.Audit.Now == nil {
		p.cfg.Audit.Now = p.clock.Now
	}
	return p
}

// Result collects the stage reports of one run.
type Result struct {
	Run       *workspace.Run
	Ingested  int
	Clean     *clean.Report
	Features  *features.Report
	Audit     *audit.Report
	Artifacts []string
}

// Run executes every stage in order and stops at the first failure. The run
// is recorded in the workspace and metrics even when it fails.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run := workspace.NewRun(p.clock.Now())
	res := &Result{Run: run}
	log := p.log.With(zap.String("run_id", run.ID))
	log.Info("pipeline started", zap.Strings("stages", Stages))

	err := p.runStages(ctx, run, res)
	run.Artifacts = res.Artifacts
	run.Finish(p.clock.Now(), err)
	if p.metrics != nil {
		p.metrics.FinishRun(run.FinishedAt, err)
		if p.cfg.MetricsTextfile != "" {
			if merr := p.metrics.WriteTextfile(p.cfg.MetricsTextfile); merr != nil {
				log.Warn("metrics export failed", zap.Error(merr))
			}
		}
	}
	if p.ws != nil {
		p.ws.AddRun(run)
		if werr := p.ws.Save(); werr != nil {
			log.Warn("record run failed", zap.Error(werr))
		}
	}
	if err != nil {
		log.Error("pipeline failed", zap.Error(err), zap.String("duration", utils.FormatDuration(run.Duration())))
		return res, err
	}
	log.Info("pipeline completed", zap.String("duration", utils.FormatDuration(run.Duration())))
	return res, nil
}

func (p *Pipeline) runStages(ctx context.Context, run *workspace.Run, res *Result) error {
	steps := []struct {
		name string
		fn   func(context.Context, *zap.Logger, *workspace.StageRecord) error
	}{
		{StageIngest, func(ctx context.Context, l *zap.Logger, rec *workspace.StageRecord) error {
			n, err := p.ingest(ctx, l)
			res.Ingested, rec.RowsOut = n, n
			return err
		}},
		{StageClean, func(ctx context.Context, l *zap.Logger, rec *workspace.StageRecord) error {
			rep, err := p.clean(ctx, l)
			res.Clean = rep
			if rep != nil {
				rec.RowsIn, rec.RowsOut = rep.InitialRows, rep.FinalRows
				rec.SkippedOps = skipNames(rep.Skipped)
			}
			return err
		}},
		{StageFeatures, func(ctx context.Context, l *zap.Logger, rec *workspace.StageRecord) error {
			rep, err := p.features(ctx, l)
			res.Features = rep
			if rep != nil {
				rec.RowsIn, rec.RowsOut = rep.Rows, rep.Rows
				rec.SkippedOps = skipNames(rep.Skipped)
			}
			return err
		}},
		{StageAudit, func(ctx context.Context, l *zap.Logger, rec *workspace.StageRecord) error {
			rep, paths, err := p.audit(ctx, l)
			res.Audit = rep
			res.Artifacts = append(res.Artifacts, paths...)
			if rep != nil {
				rec.RowsIn, rec.RowsOut = rep.Rows, rep.Rows
				rec.SkippedOps = skipNames(rep.Skipped)
			}
			return err
		}},
	}

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: s.name, Err: err}
		}
		l := logging.Stage(p.log, s.name, run.ID)
		l.Info("stage started", zap.Int("step", i+1), zap.Int("of", len(steps)))
		rec := workspace.StageRecord{Name: s.name}
		start := p.clock.Now()
		err := s.fn(ctx, l, &rec)
		rec.Duration = p.clock.Now().Sub(start)
		rec.Status = metrics.StatusSuccess
		if err != nil {
			rec.Status = metrics.StatusFailed
			rec.Error = err.Error()
		}
		run.Stages = append(run.Stages, rec)
		if p.metrics != nil {
			p.metrics.ObserveStage(s.name, rec.Duration, err)
			p.metrics.SetRows(s.name, rec.RowsIn, rec.RowsOut)
		}
		if err != nil {
			l.Error("stage failed", zap.Error(err))
			return &StageError{Stage: s.name, Err: err}
		}
		l.Info("stage completed", zap.String("duration", utils.FormatDuration(rec.Duration)))
	}
	return nil
}

// Ingest loads the source file into the raw table and returns its row count.
func (p *Pipeline) Ingest(ctx context.Context) (int, error) {
	n, err := p.ingest(ctx, logging.Stage(p.log, StageIngest, ""))
	if err != nil {
		return n, &StageError{Stage: StageIngest, Err: err}
	}
	return n, nil
}

// Clean repairs the raw table into the cleaned table.
func (p *Pipeline) Clean(ctx context.Context) (*clean.Report, error) {
	rep, err := p.clean(ctx, logging.Stage(p.log, StageClean, ""))
	if err != nil {
		return rep, &StageError{Stage: StageClean, Err: err}
	}
	return rep, nil
}

// Features derives the final table from the cleaned table.
func (p *Pipeline) Features(ctx context.Context) (*features.Report, error) {
	rep, err := p.features(ctx, logging.Stage(p.log, StageFeatures, ""))
	if err != nil {
		return rep, &StageError{Stage: StageFeatures, Err: err}
	}
	return rep, nil
}

// Audit scores the final table and renders the reports.
func (p *Pipeline) Audit(ctx context.Context) (*audit.Report, []string, error) {
	rep, paths, err := p.audit(ctx, logging.Stage(p.log, StageAudit, ""))
	if err != nil {
		return rep, paths, &StageError{Stage: StageAudit, Err: err}
	}
	return rep, paths, nil
}

func (p *Pipeline) ingest(ctx context.Context, log *zap.Logger) (int, error) {
	src := p.cfg.Source
	if src == "" {
		latest, err := LatestSource(p.cfg.RawDir)
		if err != nil {
			return 0, err
		}
		src = latest
	}
	d, err := store.ReadFile(src)
	if err != nil {
		return 0, err
	}
	if err := dataset.Validate(StageIngest, d); err != nil {
		return 0, err
	}
	log.Info("source loaded", zap.String("source", src), zap.Int("rows", d.Len()), zap.Int("columns", len(d.Columns)))

	table := p.cfg.Tables.Raw
	if existing, _ := p.store.Tables(ctx); contains(existing, table) {
		log.Warn("table exists, replacing", zap.String("table", table))
	}
	if err := p.store.Save(ctx, table, d); err != nil {
		return 0, fmt.Errorf("save %s: %w", table, err)
	}
	n, err := p.store.Count(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", table, err)
	}
	if n != d.Len() {
		return n, fmt.Errorf("verify %s: stored %d rows, read %d", table, n, d.Len())
	}
	log.Info("ingest verified", zap.String("table", table), zap.Int("rows", n))
	return n, nil
}

func (p *Pipeline) clean(ctx context.Context, log *zap.Logger) (*clean.Report, error) {
	raw, err := p.store.Load(ctx, p.cfg.Tables.Raw)
	if err != nil {
		return nil, err
	}
	out, rep, err := clean.Run(raw, p.cfg.Clean, log)
	if err != nil {
		return rep, err
	}
	out.Name = p.cfg.Tables.Cleaned
	if err := p.persist(ctx, out, log); err != nil {
		return rep, err
	}
	return rep, nil
}

func (p *Pipeline) features(ctx context.Context, log *zap.Logger) (*features.Report, error) {
	cleaned, err := p.store.Load(ctx, p.cfg.Tables.Cleaned)
	if err != nil {
		return nil, err
	}
	out, rep, err := features.Run(cleaned, log)
	if err != nil {
		return rep, err
	}
	out.Name = p.cfg.Tables.Final
	if err := p.persist(ctx, out, log); err != nil {
		return rep, err
	}
	return rep, nil
}

func (p *Pipeline) audit(ctx context.Context, log *zap.Logger) (*audit.Report, []string, error) {
	final, err := p.store.Load(ctx, p.cfg.Tables.Final)
	if err != nil {
		return nil, nil, err
	}
	rep, err := audit.Run(final, p.cfg.Audit, log)
	if err != nil {
		return nil, nil, err
	}
	if p.metrics != nil {
		p.metrics.SetQuality(rep.Quality.Score)
	}
	if p.cfg.ReportDir == "" {
		return rep, nil, nil
	}
	paths, err := report.Write(rep, p.cfg.ReportDir, p.cfg.ReportFormats)
	if err != nil {
		return rep, paths, err
	}
	log.Info("reports written", zap.Strings("paths", paths))
	return rep, paths, nil
}

// persist saves d under its name and writes the optional CSV export.
func (p *Pipeline) persist(ctx context.Context, d *dataset.Dataset, log *zap.Logger) error {
	if err := p.store.Save(ctx, d.Name, d); err != nil {
		return fmt.Errorf("save %s: %w", d.Name, err)
	}
	log.Info("table saved", zap.String("table", d.Name), zap.Int("rows", d.Len()), zap.Int("columns", len(d.Columns)))
	if p.cfg.ExportDir == "" {
		return nil
	}
	if err := utils.EnsureDir(p.cfg.ExportDir); err != nil {
		return fmt.Errorf("ensure export dir: %w", err)
	}
	var b strings.Builder
	if err := store.WriteCSV(&b, d); err != nil {
		return fmt.Errorf("export %s: %w", d.Name, err)
	}
	path := filepath.Join(p.cfg.ExportDir, d.Name+".csv")
	if err := utils.SafeWriteFile(path, []byte(b.String())); err != nil {
		return err
	}
	log.Debug("export written", zap.String("path", path))
	return nil
}

// LatestSource returns the most recently modified csv, tsv or xlsx file in dir.
func LatestSource(dir string) (string, error) {
	if dir == "" {
		return "", ErrNoSource
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".tsv", ".xlsx":
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%s: %w", dir, ErrNoSource)
	}
	return best, nil
}

func skipNames(skips []dataset.Skip) []string {
	out := make([]string, 0, len(skips))
	for _, s := range skips {
		out = append(out, s.Computation)
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
