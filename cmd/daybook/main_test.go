package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "edit.lua")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestScriptDumpHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	path := writeScript(t, dir, `
		local id = board.add_task("Write report")
		board.move_task(id, "done")
		print("ok")
	`)

	out, err := execute(t, "--config", cfgPath, "--ephemeral", "script", path, "--dump-history")
	require.NoError(t, err)

	first, rest, found := bytes.Cut([]byte(out), []byte("\n"))
	require.True(t, found)
	assert.Equal(t, "ok", string(first))

	var dump struct {
		Undo []struct {
			Kind        string `yaml:"kind"`
			Description string `yaml:"description"`
		} `yaml:"undo"`
		Redo []any `yaml:"redo"`
	}
	require.NoError(t, yaml.Unmarshal(rest, &dump))
	require.Len(t, dump.Undo, 1)
	assert.Equal(t, "group", dump.Undo[0].Kind)
	assert.Equal(t, "Run edit.lua", dump.Undo[0].Description)
	assert.Empty(t, dump.Redo)
}

func TestScriptPersistsToDatabase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	db := filepath.Join(dir, "board.db")
	path := writeScript(t, dir, `
		board.add_task("Plan sprint", "doing")
		board.add_task("Inbox zero")
	`)

	_, err := execute(t, "--config", cfgPath, "--db", db, "script", path)
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "--db", db, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "COLUMN")
	assert.Contains(t, out, "Plan sprint")
	assert.Contains(t, out, "Inbox zero")

	out, err = execute(t, "--config", cfgPath, "--db", db, "tasks", "doing")
	require.NoError(t, err)
	assert.Contains(t, out, "Plan sprint")
	assert.NotContains(t, out, "Inbox zero")

	_, err = execute(t, "--config", cfgPath, "--db", db, "tasks", "someday")
	assert.Error(t, err)
}

func TestScriptFailureReported(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, `board.rename_task("missing", "x")`)
	_, err := execute(t, "--config", filepath.Join(dir, "c.toml"), "--ephemeral", "script", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edit.lua")
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[history]\nmax_undo = 12\n"), 0o644))

	out, err := execute(t, "--config", cfgPath, "--log-level", "debug", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_undo = 12")
	assert.Contains(t, out, "level = 'debug'")

	out, err = execute(t, "--config", cfgPath, "config", "show", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "max_undo: 12")

	_, err = execute(t, "--config", cfgPath, "--log-level", "loud", "config", "show")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "daybook dev (commit unknown, built unknown)\n", out)
}
