package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/retention-cli/internal/audit"
	"github.com/KaramelBytes/retention-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/retention-cli/internal/config"
	"github.com/KaramelBytes/retention-cli/internal/logging"
	"github.com/KaramelBytes/retention-cli/internal/metrics"
	"github.com/KaramelBytes/retention-cli/internal/pipeline"
	"github.com/KaramelBytes/retention-cli/internal/store"
	"github.com/KaramelBytes/retention-cli/internal/workspace"
)

// env bundles what a pipeline command needs. Close releases the store and
// flushes the logger.
type env struct {
	ws      *workspace.Workspace
	store   store.Store
	log     *zap.Logger
	metrics *metrics.Recorder
	closers []func()
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		cfg = cfgpkg.Default()
	}
	return cfg
}

// openWorkspace resolves the workspace from config or the current directory.
func openWorkspace() (*workspace.Workspace, error) {
	c := currentConfig()
	if c.WorkspaceDir != "" {
		return workspace.Load(c.WorkspaceDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working dir: %w", err)
	}
	ws, err := workspace.Find(wd)
	if err != nil {
		return nil, fmt.Errorf("%w; run 'retention init <dir>' or pass --workspace", err)
	}
	return ws, nil
}

func openEnv(ctx context.Context) (*env, error) {
	c := currentConfig()
	ws, err := openWorkspace()
	if err != nil {
		return nil, err
	}
	e := &env{ws: ws}

	logFile := filepath.Join(ws.Path(workspace.DirLogs), "pipeline_"+time.Now().Format("20060102")+".log")
	log, closeLog, err := logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat, File: logFile})
	if err != nil {
		return nil, err
	}
	e.log = log
	e.closers = append(e.closers, closeLog)

	dir := c.Store.Dir
	if dir == "" {
		dir = ws.Path(workspace.DirDatabase)
	}
	st, err := store.Open(ctx, store.Options{Driver: c.Store.Driver, DSN: c.Store.DSN, Dir: dir})
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open %s store: %w", c.Store.Driver, err)
	}
	e.store = st
	e.closers = append(e.closers, func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	})
	e.metrics = metrics.New()
	log.Debug("environment ready",
		zap.String("workspace", ws.RootDir()),
		zap.String("store", c.Store.Driver),
		zap.String("store_dir", dir))
	return e, nil
}

// pipelineConfig maps the global config onto stage options for ws.
func pipelineConfig(ws *workspace.Workspace) pipeline.Config {
	c := currentConfig()
	pc := pipeline.DefaultConfig()
	pc.RawDir = ws.Path(workspace.DirRaw)
	pc.ExportDir = ws.Path(workspace.DirProcessed)
	pc.ReportDir = ws.Path(workspace.DirReports)
	pc.Tables = pipeline.Tables{Raw: c.Tables.Raw, Cleaned: c.Tables.Cleaned, Final: c.Tables.Final}
	if len(c.ReportFormats) > 0 {
		pc.ReportFormats = c.ReportFormats
	}
	pc.MetricsTextfile = c.MetricsTextfile

	pc.Clean = clean.DefaultOptions()
	pc.Clean.IdentityColumn = c.IdentityColumn
	pc.Clean.OutlierMultiplier = c.OutlierMultiplier

	pc.Audit = audit.DefaultOptions()
	pc.Audit.IdentityColumn = c.IdentityColumn
	pc.Audit.OutlierMultiplier = c.OutlierMultiplier
	pc.Audit.ConsistencyTolerance = c.ConsistencyTolerance
	return pc
}

func (e *env) pipeline(pc pipeline.Config) *pipeline.Pipeline {
	return pipeline.New(e.store, pc,
		pipeline.WithLogger(e.log),
		pipeline.WithMetrics(e.metrics),
		pipeline.WithWorkspace(e.ws))
}
