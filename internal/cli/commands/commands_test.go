// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{name: "validate", cmd: NewValidateCommand(), use: "validate <type> <field> <value>"},
		{name: "format", cmd: NewFormatCommand(), use: "format <type> <field> <value>", flags: []string{"edit"}},
		{name: "fields", cmd: NewFieldsCommand(), use: "fields [type]"},
		{name: "eval", cmd: NewEvalCommand(), use: "eval [type.]field", flags: []string{"node", "expr"}},
		{name: "check", cmd: NewCheckCommand(), use: "check [type...]"},
		{name: "assign", cmd: NewAssignCommand(), use: "assign", flags: []string{"write"}},
		{name: "find", cmd: NewFindCommand(), use: "find <clause>...", flags: []string{"type", "combine", "filter", "show"}},
		{name: "regenerate", cmd: NewRegenerateCommand(), use: "regenerate", flags: []string{"write"}},
		{name: "repl", cmd: NewREPLCommand(), use: "repl", flags: []string{"node"}},
		{name: "watch", cmd: NewWatchCommand(), use: "watch", flags: []string{"regenerate"}},
		{name: "list", cmd: NewListCommand(), use: "list", flags: []string{"node", "depth", "show"}},
		{name: "rules", cmd: NewRulesCommand(), use: "rules [type]", flags: []string{"target", "verbose", "format"}},
		{name: "doctor", cmd: NewDoctorCommand(), use: "doctor", flags: []string{"format"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestFindCommand_ShortFlags(t *testing.T) {
	cmd := NewFindCommand()
	for short, long := range map[string]string{"t": "type", "c": "combine", "s": "show"} {
		f := cmd.Flags().ShorthandLookup(short)
		if assert.NotNil(t, f, "-%s should exist", short) {
			assert.Equal(t, long, f.Name)
		}
	}
}
