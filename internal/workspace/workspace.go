// Package workspace manages the on-disk layout of a retention workspace and
// the history of pipeline runs recorded in its workspace.json.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/retention-cli/internal/utils"
)

// Workspace subdirectories, relative to the root.
const (
	DirRaw       = "data/raw"
	DirProcessed = "data/processed"
	DirReports   = "reports"
	DirLogs      = "logs"
	DirDatabase  = "database"
)

// Layout lists every directory Init creates.
var Layout = []string{DirRaw, DirProcessed, DirReports, DirLogs, DirDatabase}

// MaxRuns bounds the history kept in workspace.json.
const MaxRuns = 100

// Workspace represents a retention workspace persisted on disk.
type Workspace struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Runs        []*Run    `json:"runs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Not serialized: on-disk location of the workspace.json
	rootDir string `json:"-"`
}

// New constructs an in-memory workspace. Call Save() to persist.
func New(name, description, rootDir string) *Workspace {
	now := time.Now()
	return &Workspace{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Init creates the directory layout and workspace.json under dir. It refuses
// to overwrite an existing workspace or to populate a non-empty directory.
func Init(dir, name, description string) (*Workspace, error) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if _, err := os.Stat(filepath.Join(dir, utils.WorkspaceFileName)); err == nil {
			return nil, fmt.Errorf("workspace already exists at %s", dir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("inspect workspace directory: %w", err)
		}
		if len(entries) > 0 {
			return nil, fmt.Errorf("directory %s already exists and is not empty; refusing to initialize workspace", dir)
		}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat workspace directory: %w", err)
	}
	for _, sub := range Layout {
		if err := utils.EnsureDir(filepath.Join(dir, sub)); err != nil {
			return nil, fmt.Errorf("create %s: %w", sub, err)
		}
	}
	w := New(name, description, dir)
	if err := w.Save(); err != nil {
		return nil, err
	}
	return w, nil
}

// Load loads a workspace.json from the provided directory.
func Load(dir string) (*Workspace, error) {
	path := filepath.Join(dir, utils.WorkspaceFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	w.rootDir = dir
	return &w, nil
}

// Find loads the workspace containing start, walking up the tree.
func Find(start string) (*Workspace, error) {
	root, err := utils.FindWorkspaceRoot(start)
	if err != nil {
		return nil, err
	}
	return Load(root)
}

// RootDir returns the on-disk workspace directory path.
func (w *Workspace) RootDir() string { return w.rootDir }

// Path joins a layout directory onto the root.
func (w *Workspace) Path(sub string) string { return filepath.Join(w.rootDir, filepath.FromSlash(sub)) }

// Save writes workspace.json using atomic write.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	if err := utils.EnsureDir(w.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	w.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(w)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(w.rootDir, utils.WorkspaceFileName), data)
}

// AddRun appends a run, dropping the oldest beyond MaxRuns.
func (w *Workspace) AddRun(r *Run) {
	w.Runs = append(w.Runs, r)
	if len(w.Runs) > MaxRuns {
		w.Runs = append([]*Run(nil), w.Runs[len(w.Runs)-MaxRuns:]...)
	}
	w.UpdatedAt = time.Now()
}

// LatestRun returns the most recent run, or nil.
func (w *Workspace) LatestRun() *Run {
	if len(w.Runs) == 0 {
		return nil
	}
	return w.Runs[len(w.Runs)-1]
}

// FindRun returns the run whose ID starts with prefix.
func (w *Workspace) FindRun(prefix string) (*Run, error) {
	var found *Run
	for _, r := range w.Runs {
		if len(prefix) > 0 && len(r.ID) >= len(prefix) && r.ID[:len(prefix)] == prefix {
			if found != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
			}
			found = r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("run %q not found", prefix)
	}
	return found, nil
}
