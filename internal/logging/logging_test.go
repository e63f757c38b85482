package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/daybook/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		err  bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" Warn ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("undone", zap.String("kind", "move-task"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "undone", line["msg"])
	assert.Equal(t, "move-task", line["kind"])
	assert.Equal(t, "info", line["level"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(config.LogConfig{Level: "error", Format: "console"}, &buf)
	require.NoError(t, err)

	log.Info("dropped")
	assert.Empty(t, buf.String())

	require.NoError(t, log.SetLevel("debug"))
	log.Debug("kept")
	assert.Contains(t, buf.String(), "kept")

	assert.Error(t, log.SetLevel("nope"))
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daybook.log")
	log, err := New(config.LogConfig{Level: "info", Format: "json", File: path}, SinkDiscard)
	require.NoError(t, err)

	log.Info("hello")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewDiscard(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug"}, SinkDiscard)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
	assert.NoError(t, log.Close())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "shout"}, SinkStderr)
	assert.Error(t, err)
}
