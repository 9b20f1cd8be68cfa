package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, closeFn, err := New(Options{Level: "info", Format: "console", File: path})
	require.NoError(t, err)

	Stage(logger, "clean", "run-1").Info("cleaning finished")
	Stage(logger, "clean", "run-1").Debug("hidden at info level")
	closeFn()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	require.True(t, strings.Contains(out, `"stage":"clean"`), out)
	require.True(t, strings.Contains(out, `"run_id":"run-1"`), out)
	require.False(t, strings.Contains(out, "hidden at info level"), out)
}

func TestStageWithNilBase(t *testing.T) {
	require.NotNil(t, Stage(nil, "audit", ""))
}
