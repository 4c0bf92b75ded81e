// Package main provides tests for the leapnote CLI.
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapnote/internal/cli"
	"github.com/leapstack-labs/leapnote/internal/cli/config"
	"github.com/leapstack-labs/leapnote/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func projectArgs(t *testing.T, args ...string) []string {
	t.Helper()
	dir := testutil.SetupTestProject(t)
	return append(args, "--config", filepath.Join(dir, "leapnote.yaml"))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapnote")
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)

	expectedCommands := []string{"validate", "format", "eval", "check", "assign", "find", "regenerate", "list", "rules", "dag", "doctor", "repl", "watch"}
	for _, expected := range expectedCommands {
		assert.Contains(t, out, expected)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, projectArgs(t, "validate", "Task", "Due", "March 5, 2024", "-o", "json")...)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-05")
}

func TestRegenerateCommandJSON(t *testing.T) {
	out, err := run(t, projectArgs(t, "regenerate", "-o", "json")...)
	require.NoError(t, err)

	var res struct {
		Updates []struct {
			Node  string `json:"node"`
			Field string `json:"field"`
			New   string `json:"new"`
		} `json:"updates"`
		Written bool `json:"written"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Written)

	got := make(map[string]string)
	for _, u := range res.Updates {
		got[u.Node+"."+u.Field] = u.New
	}
	assert.Equal(t, "52", got["root.Total"])
	assert.Equal(t, "20", got["t1.Total"])
	assert.NotContains(t, got, "t3.Total", "unchanged values are not reported")
}

func TestListCommand(t *testing.T) {
	out, err := run(t, projectArgs(t, "list", "-o", "markdown")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Outline"))
	assert.Contains(t, out, "_clone_")
}

func TestMissingSchema(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "list", "--schema", filepath.Join(dir, "none.yaml"), "--outline", filepath.Join(dir, "none.yaml"))
	assert.Error(t, err)
}

func TestCompletionCommand(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			out, err := run(t, "completion", shell)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "unknown-command")
	assert.Error(t, err)
}
