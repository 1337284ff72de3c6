package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_Disabled verifies a disabled logger drops everything.
func TestNew_Disabled(t *testing.T) {
	l, closeFn, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, l.Enabled(t.Context(), slog.LevelError))
	require.NoError(t, closeFn())
}

// TestNew_File verifies records are written as JSON at the chosen level.
func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, closeFn, err := New(Options{Enabled: true, Path: path, Level: slog.LevelDebug})
	require.NoError(t, err)

	l.Debug("split", "off", 32)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec))
	assert.Equal(t, "split", rec["msg"])
	assert.Equal(t, float64(32), rec["off"])
}

// TestNew_Directory verifies dated files and retention cleanup.
func TestNew_Directory(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -retentionDays-5).Format("2006-01-02")+logSuffix)
	keep := filepath.Join(dir, "unrelated.txt")
	require.NoError(t, os.WriteFile(old, nil, 0644))
	require.NoError(t, os.WriteFile(keep, nil, 0644))

	l, closeFn, err := New(Options{Enabled: true, Path: dir, Level: slog.LevelWarn})
	require.NoError(t, err)
	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, closeFn())

	assert.NoFileExists(t, old)
	assert.FileExists(t, keep)

	today := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	data, err := os.ReadFile(today)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

// TestInit_Global verifies Init replaces L.
func TestInit_Global(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	closeFn, err := Init(Options{Enabled: true, Level: slog.LevelInfo})
	require.NoError(t, err)
	defer closeFn()
	assert.True(t, L.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, L.Enabled(t.Context(), slog.LevelDebug))
}
