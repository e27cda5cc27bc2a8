package observability

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewHandler_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler("production", slog.LevelInfo, &buf))
	logger.Info("listing created", slog.String("slug", "blue-house-1"))

	assert.Contains(t, buf.String(), `"msg":"listing created"`)
	assert.Contains(t, buf.String(), `"slug":"blue-house-1"`)
}

func TestNewHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler("development", slog.LevelWarn, &buf))
	logger.Info("hidden")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.Empty(t, buf.String())
}

func TestLogOutput_WritesRotatingFile(t *testing.T) {
	assert.Equal(t, os.Stdout, LogOutput(""))

	path := filepath.Join(t.TempDir(), "earthhome.log")
	w := LogOutput(path)
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}
