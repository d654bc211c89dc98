package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/useradmin/internal/config"
)

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := parseFlags(nil)
		require.NoError(t, err)
		assert.Empty(t, opts.ConfigPath)
		assert.False(t, opts.Mock)
	})

	t.Run("long and short forms", func(t *testing.T) {
		opts, err := parseFlags([]string{"--config", "/tmp/a.yaml", "--mock"})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/a.yaml", opts.ConfigPath)
		assert.True(t, opts.Mock)

		opts, err = parseFlags([]string{"-c", "b.yaml"})
		require.NoError(t, err)
		assert.Equal(t, "b.yaml", opts.ConfigPath)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseFlags([]string{"--nope"})
		require.Error(t, err)
	})

	t.Run("help", func(t *testing.T) {
		_, err := parseFlags([]string{"--help"})
		require.ErrorIs(t, err, flag.ErrHelp)
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
		{"uppercase not handled", "DEBUG", slog.LevelInfo}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level))
		})
	}
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	cfg := config.DefaultConfig()
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	logger := setupLogger(cfg, &buf)
	logger.Debug("hidden")
	logger.Info("hello", slog.String("view_id", "v1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "useradmin", entry["app"])
	assert.Equal(t, "v1", entry["view_id"])
}

func TestSetupLogger_TextFormat(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	cfg := config.DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "text"

	var buf bytes.Buffer
	logger := setupLogger(cfg, &buf)
	logger.Debug("visible")

	assert.Contains(t, buf.String(), "msg=visible")
	assert.Contains(t, buf.String(), "source=", "debug level adds the call site")
	assert.Same(t, logger, slog.Default())
}
