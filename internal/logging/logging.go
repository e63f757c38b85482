// Package logging builds the zap loggers used across daybook.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/daybook/internal/config"
)

// Sink selects where output goes when no log file is configured.
type Sink int

const (
	// SinkDiscard drops log output. The TUI uses it because it owns the
	// terminal.
	SinkDiscard Sink = iota
	// SinkStderr writes to standard error.
	SinkStderr
)

// ParseLevel parses a level name as zap does. An empty name is info.
func ParseLevel(s string) (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// Logger is a zap logger with an adjustable level and the closer of its
// output file, if any.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel

	closer io.Closer
}

// New builds a logger from cfg. When cfg.File is empty output goes to
// fallback.
func New(cfg config.LogConfig, fallback Sink) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)

	var (
		ws     zapcore.WriteSyncer
		closer io.Closer
	)
	switch {
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		ws, closer = zapcore.Lock(f), f
	case fallback == SinkStderr:
		ws = zapcore.Lock(os.Stderr)
	default:
		return &Logger{Logger: zap.NewNop(), Level: atom}, nil
	}

	return &Logger{
		Logger: zap.New(zapcore.NewCore(encoder(cfg.Format), ws, atom)),
		Level:  atom,
		closer: closer,
	}, nil
}

// NewWriter builds a logger that writes to w. It is used by tests and by
// commands that capture logs.
func NewWriter(cfg config.LogConfig, w io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(encoder(cfg.Format), zapcore.AddSync(w), atom)
	return &Logger{Logger: zap.New(core), Level: atom}, nil
}

// SetLevel changes the level of a running logger.
func (l *Logger) SetLevel(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	l.Level.SetLevel(level)
	return nil
}

// Close flushes buffered output and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func encoder(format string) zapcore.Encoder {
	if format == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zapcore.NewConsoleEncoder(ec)
}
