package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/retention-cli/internal/workspace"
)

func TestInitCreatesLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	w, err := workspace.Init(dir, "churn", "telecom retention")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, sub := range workspace.Layout {
		if info, err := os.Stat(w.Path(sub)); err != nil || !info.IsDir() {
			t.Fatalf("missing %s: %v", sub, err)
		}
	}
	if _, err := workspace.Init(dir, "again", ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to reinitialize, got %v", err)
	}

	busy := t.TempDir()
	if err := os.WriteFile(filepath.Join(busy, "x.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := workspace.Init(busy, "busy", ""); err == nil {
		t.Fatalf("expected refusal for non-empty directory")
	}
}

func TestRunsPersist(t *testing.T) {
	dir := t.TempDir()
	w, err := workspace.Init(dir, "churn", "")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := workspace.NewRun(start)
	r.Stages = append(r.Stages, workspace.StageRecord{Name: "ingest", Status: "success", Duration: time.Second, RowsOut: 10})
	r.Finish(start.Add(2*time.Second), errors.New("clean: boom"))
	w.AddRun(r)
	if err := w.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := workspace.Find(filepath.Join(dir, workspace.DirRaw))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	last := got.LatestRun()
	if last == nil || last.ID != r.ID {
		t.Fatalf("latest run = %+v", last)
	}
	if last.Status != workspace.RunFailed || last.Error != "clean: boom" {
		t.Fatalf("unexpected status %s / %s", last.Status, last.Error)
	}
	if last.Duration() != 2*time.Second {
		t.Fatalf("duration = %v", last.Duration())
	}
	if found, err := got.FindRun(r.ID[:8]); err != nil || found.ID != r.ID {
		t.Fatalf("find run by prefix: %v", err)
	}
}

func TestAddRunCapsHistory(t *testing.T) {
	w := workspace.New("cap", "", t.TempDir())
	var first string
	for i := 0; i < workspace.MaxRuns+5; i++ {
		r := workspace.NewRun(time.Now())
		if i == 5 {
			first = r.ID
		}
		w.AddRun(r)
	}
	if len(w.Runs) != workspace.MaxRuns {
		t.Fatalf("runs = %d", len(w.Runs))
	}
	if w.Runs[0].ID != first {
		t.Fatalf("oldest runs were not dropped first")
	}
}
