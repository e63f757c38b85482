package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DAYBOOK_"

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// envSetters maps environment variables (without prefix) to setters.
var envSetters = map[string]func(c *Config, v string) error{
	"HISTORY_MAX_UNDO": func(c *Config, v string) error { return setInt(&c.History.MaxUndo, v) },
	"HISTORY_MAX_REDO": func(c *Config, v string) error { return setInt(&c.History.MaxRedo, v) },
	"STORE_PATH":       func(c *Config, v string) error { c.Store.Path = v; return nil },
	"STORE_EPHEMERAL":  func(c *Config, v string) error { return setBool(&c.Store.Ephemeral, v) },
	"LOG_LEVEL":        func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	"LOG_FORMAT":       func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil },
	"LOG_FILE":         func(c *Config, v string) error { c.Log.File = v; return nil },
	"UI_TOAST_DURATION": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.UI.ToastDuration = Duration(d)
		return nil
	},
}

// ApplyEnv overrides cfg with DAYBOOK_* variables.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	for name, set := range envSetters {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("environment %s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
