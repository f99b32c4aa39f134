package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWritesTraceToConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gridshift.log")
	var console bytes.Buffer

	logger, cleanup, err := New(&console, "trace", path)
	require.NoError(t, err)

	Trace(logger, "switching grid", "from", "a", "to", "b")
	logger.Debug("reloading")
	cleanup()

	assert.Contains(t, console.String(), "level=TRACE")
	assert.Contains(t, console.String(), "switching grid")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=TRACE")
	assert.Contains(t, string(data), "reloading")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var console bytes.Buffer
	logger, cleanup, err := New(&console, "info", "")
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("hidden")
	Trace(logger, "hidden too")
	logger.Info("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestOrDiscard(t *testing.T) {
	l := OrDiscard(nil)
	require.NotNil(t, l)
	l.Error("goes nowhere")

	var buf bytes.Buffer
	own := slog.New(slog.NewTextHandler(&buf, nil))
	assert.Same(t, own, OrDiscard(own))
}
