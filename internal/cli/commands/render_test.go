package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/internal/cli/testutil"
	"github.com/leapstack-labs/leapnote/pkg/outline"
)

func TestListRendering(t *testing.T) {
	eng := newProjectEngine(t)
	tree, err := outline.Load(strings.NewReader(testutil.ProjectOutline))
	require.NoError(t, err)
	show := []string{"Due"}
	out := buildListOutput(eng, tree, tree.Root(), &ListOptions{Show: show})

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		listText(tr.Renderer, out, show)
		testutil.AssertOutputMode(t, tr, output.ModeText)
		testutil.AssertContains(t, tr.Output(), "Outline (5 nodes, 6 positions)")
		testutil.AssertContains(t, tr.Output(), "(clone)")
		testutil.AssertContains(t, tr.Output(), "Due=March 5, 2024")
	})

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		listMarkdown(tr.Renderer, out, show)
		testutil.AssertOutputMode(t, tr, output.ModeMarkdown)
		testutil.AssertValidMarkdown(t, tr.Output())
		testutil.AssertContains(t, tr.Output(), "  - **a** (Folder) Design")
		testutil.AssertNotContains(t, tr.Output(), "(clone)")

		tr.Reset()
		testutil.AssertNotContains(t, tr.Output(), "Outline")
	})
}

func TestRulesRendering(t *testing.T) {
	infos, err := collectRules(newProjectEngine(t), "", "")
	require.NoError(t, err)

	tr := testutil.NewTestRendererAuto()
	require.NoError(t, listRulesMarkdown(tr.Renderer, infos, true))
	testutil.AssertOutputMode(t, tr, output.ModeMarkdown)
	testutil.AssertContains(t, tr.Output(), "## Task")
	testutil.AssertContains(t, tr.Output(), "=> **Folder**")

	tr = testutil.NewTestRendererJSON()
	require.NoError(t, listRulesJSON(tr.Renderer, infos))
	testutil.AssertOutputMode(t, tr, output.ModeJSON)
	testutil.AssertContains(t, tr.Output(), `"target": "Folder"`)
}
