// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapnote/internal/cli/config"
	"github.com/leapstack-labs/leapnote/internal/cli/output"
)

// ProjectSchema is the schema written by SetupTestProject.
const ProjectSchema = `types:
  - name: Folder
    child_type: Task
    fields:
      - name: Name
        kind: OneLineText
      - name: Amount
        kind: Number
      - name: Total
        kind: Math
        equation: sum(child.Total) + self.Amount
  - name: Task
    fields:
      - name: Name
        kind: OneLineText
      - name: Amount
        kind: Number
      - name: Qty
        kind: Number
      - name: Due
        kind: Date
      - name: Done
        kind: Boolean
      - name: Step
        kind: Numbering
        format: I../A../1..
      - name: Total
        kind: Math
        equation: self.Amount * self.Qty
      - name: Share
        kind: Math
        equation: round(self.Total * 100 / parent.Total)
    rules:
      - target: Folder
        clauses:
          - field: Qty
            op: is-empty
  - name: Urgent
    generic: Task
`

// ProjectOutline is the outline written by SetupTestProject. Node t1 is
// cloned under the root.
const ProjectOutline = `id: root
type: Folder
fields:
  Name: Plan
  Amount: 1
children:
  - id: a
    type: Folder
    fields:
      Name: Design
      Amount: 2
    children:
      - id: t1
        type: Task
        fields:
          Name: Sketch
          Amount: 10
          Qty: 2
          Due: 2024-03-05
          Done: true
      - id: t2
        type: Task
        fields:
          Name: Review
          Amount: 5
  - id: t3
    type: Task
    fields:
      Name: Ship
      Amount: 3
      Qty: 3
      Total: 9
  - clone: t1
`

// SetupTestProject creates a temporary leapnote project with a schema and
// an outline and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"leapnote.yaml": "schema: schema.yaml\noutline: outline.yaml\nblank_as_zero: true\n",
		"schema.yaml":   ProjectSchema,
		"outline.yaml":  ProjectOutline,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// LoadTestProject sets up a project and loads its configuration with the
// given output format, the way the root command does before running a
// subcommand.
func LoadTestProject(t *testing.T, outputFormat string) *config.Config {
	t.Helper()

	dir := SetupTestProject(t)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("LEAPNOTE_OUTPUT", outputFormat)

	cfg, err := config.LoadConfig(filepath.Join(dir, "leapnote.yaml"), nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererAuto creates a new test renderer with auto mode detection.
// In tests, non-TTY defaults to markdown output.
func NewTestRendererAuto() *TestRenderer {
	return NewTestRenderer(output.ModeAuto, false)
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

// AssertOutputMode checks that the renderer output matches expected mode characteristics.
func AssertOutputMode(t *testing.T, tr *TestRenderer, expectedMode output.OutputMode) {
	t.Helper()

	combinedOutput := tr.Output() + tr.ErrorOutput()

	switch expectedMode {
	case output.ModeMarkdown:
		AssertNoANSI(t, combinedOutput)
		// Markdown mode should not contain ANSI codes
	case output.ModeText:
		// Text mode may contain ANSI codes if TTY
		// No specific assertion needed
	case output.ModeJSON:
		AssertNoANSI(t, combinedOutput)
		// JSON mode should not contain ANSI codes
	}
}
