package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapnote/internal/cli/testutil"
)

func TestNewRulesCommand(t *testing.T) {
	cmd := NewRulesCommand()

	assert.Equal(t, "rules [type]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Example)

	for _, flag := range []string{"target", "verbose", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "V", cmd.Flags().Lookup("verbose").Shorthand)
}

func TestRulesCommand_ListAll(t *testing.T) {
	testutil.LoadTestProject(t, "text")

	out, err := execute(t, NewRulesCommand())
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "Type Rules (1 rules, 1 types)")
	assert.Contains(t, out, "Task")
	assert.Contains(t, out, "1  Qty empty => Folder")
	assert.NotContains(t, out, "have issues")
}

func TestRulesCommand_FilterByType(t *testing.T) {
	testutil.LoadTestProject(t, "json")

	tests := []struct {
		name  string
		args  []string
		count int
	}{
		{name: "own rules", args: []string{"Task"}, count: 1},
		{name: "derived type uses its generic type", args: []string{"Urgent"}, count: 1},
		{name: "type without rules", args: []string{"Folder"}, count: 0},
		{name: "target filter", args: []string{"--target", "Folder"}, count: 1},
		{name: "target without rules", args: []string{"--target", "Urgent"}, count: 0},
		{name: "type and target", args: []string{"Urgent", "-t", "Task"}, count: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out RulesJSONOutput
			require.NoError(t, executeJSON(t, &out, NewRulesCommand(), tt.args...))
			assert.Len(t, out.Rules, tt.count)
			assert.Equal(t, tt.count, out.Count.Rules)
			assert.NotNil(t, out.Rules, "an empty listing is [] not null")
			for _, r := range out.Rules {
				assert.Equal(t, "Task", r.Type, "rules are listed under the type that declares them")
			}
		})
	}

	_, err := execute(t, NewRulesCommand(), "Widget")
	assert.ErrorContains(t, err, `unknown type "Widget"`)
}

func TestRulesCommand_JSON(t *testing.T) {
	testutil.LoadTestProject(t, "text")

	var out RulesJSONOutput
	require.NoError(t, executeJSON(t, &out, NewRulesCommand(), "--format", "json"))
	require.Len(t, out.Rules, 1)

	rule := out.Rules[0]
	assert.Equal(t, RuleInfo{
		Type:      "Task",
		Index:     1,
		Target:    "Folder",
		Combine:   "and",
		Clauses:   []string{"Qty empty"},
		Condition: "Qty empty",
	}, rule)
	assert.Equal(t, 1, out.Count.Types)
	assert.Equal(t, 1, out.Count.Rules)
	assert.Zero(t, out.Count.Issues)
}

func TestRulesCommand_Markdown(t *testing.T) {
	testutil.LoadTestProject(t, "json")

	out, err := execute(t, NewRulesCommand(), "--format", "markdown")
	require.NoError(t, err)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Type Rules")
	assert.Contains(t, out, "## Task")
	assert.Contains(t, out, "1. `Qty empty` => **Folder**")
}

func TestListRules_VerboseAndIssues(t *testing.T) {
	infos := []RuleInfo{
		{
			Type:      "Item",
			Index:     1,
			Target:    "Urgent",
			Combine:   "and",
			Clauses:   []string{`Type == "Task"`, `Priority > "3"`},
			Condition: `Type == "Task" and Priority > "3"`,
		},
		{
			Type:      "Item",
			Index:     2,
			Target:    "Ghost",
			Combine:   "and",
			Clauses:   []string{"Done true"},
			Condition: "Done true",
			Issue:     `unknown target type "Ghost"`,
		},
	}

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		require.NoError(t, listRulesText(tr.Renderer, infos, true))
		out := tr.Output()
		assert.Contains(t, out, "Type Rules (2 rules, 1 types)")
		assert.Contains(t, out, "and of:")
		assert.Contains(t, out, `Priority > "3"`)
		assert.Contains(t, out, `unknown target type "Ghost"`)
		assert.Contains(t, out, "1 rule(s) have issues")

		tr.Reset()
		require.NoError(t, listRulesText(tr.Renderer, infos, false))
		assert.NotContains(t, tr.Output(), "and of:")
	})

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, listRulesMarkdown(tr.Renderer, infos, true))
		out := tr.Output()
		assert.Contains(t, out, "   - and: `Type == \"Task\"`")
		assert.Contains(t, out, "   > unknown target type \"Ghost\"")
	})

	t.Run("json counts", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		require.NoError(t, listRulesJSON(tr.Renderer, infos))
		testutil.AssertContains(t, tr.Output(), `"issues": 1`)
		testutil.AssertContains(t, tr.Output(), `"types": 1`)
	})

	t.Run("empty", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		require.NoError(t, listRulesText(tr.Renderer, nil, false))
		assert.Contains(t, tr.Output(), "No rules defined")
	})
}
