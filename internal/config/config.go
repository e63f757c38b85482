// Package config provides configuration loading for daybook.
//
// Configuration is read from a TOML or YAML file (chosen by extension),
// then overridden by DAYBOOK_* environment variables, then validated.
// A missing file is not an error; defaults apply.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Config is the complete daybook configuration.
type Config struct {
	History HistoryConfig `toml:"history" yaml:"history"`
	Store   StoreConfig   `toml:"store" yaml:"store"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	UI      UIConfig      `toml:"ui" yaml:"ui"`
}

// HistoryConfig bounds the undo/redo stacks.
type HistoryConfig struct {
	// MaxUndo is the undo stack capacity.
	MaxUndo int `toml:"max_undo" yaml:"max_undo"`
	// MaxRedo bounds the redo stack; 0 leaves it unbounded.
	MaxRedo int `toml:"max_redo" yaml:"max_redo"`
}

// StoreConfig selects where board data lives.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `toml:"path" yaml:"path"`
	// Ephemeral keeps data in memory only.
	Ephemeral bool `toml:"ephemeral" yaml:"ephemeral"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is json or console.
	Format string `toml:"format" yaml:"format"`
	// File receives log output; empty means the command's default sink.
	File string `toml:"file" yaml:"file"`
}

// UIConfig configures the terminal board.
type UIConfig struct {
	// ToastDuration is how long undo/redo notifications stay visible.
	ToastDuration Duration `toml:"toast_duration" yaml:"toast_duration"`
}

// Defaults.
const (
	DefaultMaxUndo       = 50
	DefaultToastDuration = 2 * time.Second
)

// Valid log levels and formats.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"console", "json"}
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxUndo: DefaultMaxUndo,
		},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			ToastDuration: Duration(DefaultToastDuration),
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "daybook", "config.toml")
}

// DefaultStorePath returns the default database path.
func DefaultStorePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "daybook.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "daybook", "daybook.db")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error
	if c.History.MaxUndo <= 0 {
		errs = append(errs, fieldError("history.max_undo", c.History.MaxUndo, "must be positive"))
	}
	if c.History.MaxRedo < 0 {
		errs = append(errs, fieldError("history.max_redo", c.History.MaxRedo, "must not be negative"))
	}
	if !c.Store.Ephemeral && c.Store.Path == "" {
		errs = append(errs, fieldError("store.path", c.Store.Path, "required unless store.ephemeral is set"))
	}
	if !slices.Contains(LogLevels, c.Log.Level) {
		errs = append(errs, fieldError("log.level", c.Log.Level, fmt.Sprintf("must be one of %v", LogLevels)))
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		errs = append(errs, fieldError("log.format", c.Log.Format, fmt.Sprintf("must be one of %v", LogFormats)))
	}
	if c.UI.ToastDuration < 0 {
		errs = append(errs, fieldError("ui.toast_duration", c.UI.ToastDuration, "must not be negative"))
	}
	return errors.Join(errs...)
}
