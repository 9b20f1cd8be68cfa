package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/retention-cli/internal/utils"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.50 seconds"},
		{90 * time.Second, "1.50 minutes"},
		{2 * time.Hour, "2.00 hours"},
		{0, "0.00 seconds"},
	}
	for _, c := range cases {
		if got := utils.FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSafeWriteFileAndFindWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := utils.SafeWriteFile(filepath.Join(root, utils.WorkspaceFileName), []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, utils.WorkspaceFileName+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
	nested := filepath.Join(root, "data", "raw")
	if err := utils.EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	got, err := utils.FindWorkspaceRoot(nested)
	if err != nil {
		t.Fatalf("find root: %v", err)
	}
	if got != root {
		t.Fatalf("root = %s, want %s", got, root)
	}
	if _, err := utils.FindWorkspaceRoot(t.TempDir()); err == nil {
		t.Fatalf("expected error outside a workspace")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected json: %q", b)
	}
}
