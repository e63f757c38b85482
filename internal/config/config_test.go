package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.History.MaxUndo)
	assert.Equal(t, 0, cfg.History.MaxRedo)
	assert.Equal(t, 2*time.Second, cfg.UI.ToastDuration.Std())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.toml"), noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[history]
max_undo = 10
max_redo = 5

[store]
path = "/tmp/board.db"

[log]
level = "debug"
format = "json"

[ui]
toast_duration = "750ms"
`)
	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.History.MaxUndo)
	assert.Equal(t, 5, cfg.History.MaxRedo)
	assert.Equal(t, "/tmp/board.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 750*time.Millisecond, cfg.UI.ToastDuration.Std())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
history:
  max_undo: 7
store:
  ephemeral: true
ui:
  toast_duration: 3s
`)
	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.History.MaxUndo)
	assert.True(t, cfg.Store.Ephemeral)
	assert.Equal(t, 3*time.Second, cfg.UI.ToastDuration.Std())
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, dir, "config.ini", "x=1")
		_, err := LoadWithEnv(path, noEnv)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("toml syntax", func(t *testing.T) {
		path := writeFile(t, dir, "bad.toml", "[history\nmax_undo = 1\n")
		_, err := LoadWithEnv(path, noEnv)
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, path, pe.Path)
		assert.Positive(t, pe.Line)
	})

	t.Run("unknown toml key", func(t *testing.T) {
		path := writeFile(t, dir, "unknown.toml", "[history]\nmax_undos = 1\n")
		_, err := LoadWithEnv(path, noEnv)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, dir, "invalid.toml", "[history]\nmax_undo = 0\n[log]\nlevel = \"loud\"\n")
		_, err := LoadWithEnv(path, noEnv)
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "history.max_undo")
		assert.Contains(t, err.Error(), "log.level")
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"DAYBOOK_HISTORY_MAX_UNDO":   "25",
		"DAYBOOK_HISTORY_MAX_REDO":   "3",
		"DAYBOOK_STORE_EPHEMERAL":    "true",
		"DAYBOOK_LOG_LEVEL":          "WARN",
		"DAYBOOK_UI_TOAST_DURATION":  "1s",
		"DAYBOOK_STORE_PATH":         "/data/db",
		"UNRELATED_HISTORY_MAX_UNDO": "1",
	}))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.History.MaxUndo)
	assert.Equal(t, 3, cfg.History.MaxRedo)
	assert.True(t, cfg.Store.Ephemeral)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.UI.ToastDuration.Std())
	assert.Equal(t, "/data/db", cfg.Store.Path)

	err = ApplyEnv(Default(), envMap(map[string]string{"DAYBOOK_HISTORY_MAX_UNDO": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAYBOOK_HISTORY_MAX_UNDO")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[history]\nmax_undo = 10\n")
	cfg, err := LoadWithEnv(path, envMap(map[string]string{"DAYBOOK_HISTORY_MAX_UNDO": "99"}))
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.History.MaxUndo)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.History.MaxRedo = 9
	cfg.UI.ToastDuration = Duration(1500 * time.Millisecond)

	for _, format := range []Format{FormatTOML, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, cfg, format))
			assert.Contains(t, buf.String(), "1.5s")

			got, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}

	assert.ErrorIs(t, Encode(&bytes.Buffer{}, cfg, "ini"), ErrUnsupportedFormat)
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"a.toml", FormatTOML, false},
		{"A.TOML", FormatTOML, false},
		{"a.yaml", FormatYAML, false},
		{"a.yml", FormatYAML, false},
		{"a.json", "", true},
		{"config", "", true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if tt.err {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	var d Duration
	err := d.UnmarshalText([]byte("soon"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "soon"))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", "[history]\nmax_undo = 10\n")

	w, err := NewWatcher(path, WithDebounce(10*time.Millisecond), WithLookup(noEnv))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(cfg *Config, err error) {
			if err == nil {
				reloads <- cfg
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		require.NoError(t, w.Close())
	})

	// Unrelated files in the directory are ignored.
	writeFile(t, dir, "other.toml", "x = 1")
	writeFile(t, dir, "config.toml", "[history]\nmax_undo = 20\n")

	select {
	case cfg := <-reloads:
		assert.Equal(t, 20, cfg.History.MaxUndo)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcherCloseStopsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	w, err := NewWatcher(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), func(*Config, error) {}) }()

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	select {
	case err := <-done:
		assert.False(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
