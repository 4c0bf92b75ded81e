package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/spf13/cobra"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Node  string
	Depth int
	Show  []string
}

// ListEntry is one position of the outline.
type ListEntry struct {
	Node   string            `json:"node"`
	Type   string            `json:"type"`
	Depth  int               `json:"depth"`
	Path   []int             `json:"path"`
	Label  string            `json:"label,omitempty"`
	Clone  bool              `json:"clone,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// ListOutput is the JSON output structure for the outline listing.
type ListOutput struct {
	Entries []ListEntry `json:"entries"`
	Summary struct {
		Nodes     int `json:"nodes"`
		Positions int `json:"positions"`
		Clones    int `json:"clones"`
	} `json:"summary"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the outline as a tree",
		Long: `List every position of the outline with its type and a display label.

The label is the first field of the node's type that has a value, formatted
for display. Cloned nodes appear at each of their positions and are marked.

Output adapts to environment:
  - Terminal: Styled, indented tree
  - Piped/Scripted: Markdown nested list (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List the whole outline
  leapnote list

  # List the subtree under one node, two levels deep
  leapnote list --node design --depth 2

  # Show extra fields
  leapnote list -s Due -s Total

  # List as JSON
  leapnote list --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Node, "node", "n", "", "Start at this node instead of the root")
	cmd.Flags().IntVarP(&opts.Depth, "depth", "d", 0, "Maximum depth below the start node (0 for all)")
	cmd.Flags().StringArrayVarP(&opts.Show, "show", "s", nil, "Field to show next to each node (repeatable)")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		return err
	}
	start, err := findPosition(tree, opts.Node)
	if err != nil {
		return err
	}

	listOutput := buildListOutput(cmdCtx.Engine, tree, start, opts)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(listOutput)
	case output.ModeMarkdown:
		listMarkdown(r, listOutput, opts.Show)
	default:
		listText(r, listOutput, opts.Show)
	}
	return nil
}

// buildListOutput walks the subtree under start in preorder.
func buildListOutput(eng *engine.Engine, tree *outline.Tree, start outline.NodeView, opts *ListOptions) ListOutput {
	var out ListOutput
	out.Entries = []ListEntry{}

	base := outline.Depth(start)
	seen := make(map[string]bool)
	for node := range outline.Walk(start) {
		depth := outline.Depth(node) - base
		if opts.Depth > 0 && depth > opts.Depth {
			continue
		}
		entry := ListEntry{
			Node:   node.ID(),
			Type:   node.DataType(),
			Depth:  depth,
			Label:  nodeLabel(eng, node),
			Clone:  len(tree.PositionsOf(node.ID())) > 1,
			Values: displayValues(eng, node, opts.Show),
		}
		if p, ok := node.(*outline.Position); ok {
			entry.Path = p.Path()
		}
		out.Entries = append(out.Entries, entry)

		if seen[node.ID()] {
			out.Summary.Clones++
		} else {
			seen[node.ID()] = true
			out.Summary.Nodes++
		}
	}
	out.Summary.Positions = len(out.Entries)
	return out
}

// nodeLabel returns the first field of the node's type that has a value.
func nodeLabel(eng *engine.Engine, node outline.NodeView) string {
	dt, ok := eng.Registry().Type(node.DataType())
	if !ok {
		return ""
	}
	for _, f := range dt.Fields() {
		v, ok := node.FieldValue(f.Name)
		if !ok {
			continue
		}
		return f.ToDisplay(v)
	}
	return ""
}

// displayValues returns the named fields of node formatted for display.
// Fields without a value are left out.
func displayValues(eng *engine.Engine, node outline.NodeView, names []string) map[string]string {
	var values map[string]string
	for _, name := range names {
		v, ok := node.FieldValue(name)
		if !ok {
			continue
		}
		if values == nil {
			values = make(map[string]string)
		}
		if display, err := eng.FormatFieldForDisplay(node.DataType(), name, v); err == nil {
			v = display
		}
		values[name] = v
	}
	return values
}

func entryExtras(e ListEntry, show []string) string {
	var parts []string
	for _, name := range show {
		if v, ok := e.Values[name]; ok {
			parts = append(parts, name+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

// listText outputs the outline as an indented tree.
func listText(r *output.Renderer, out ListOutput, show []string) {
	styles := r.Styles()

	r.Header(1, fmt.Sprintf("Outline (%d nodes, %d positions)", out.Summary.Nodes, out.Summary.Positions))

	for _, e := range out.Entries {
		line := strings.Repeat("  ", e.Depth) + styles.Bold.Render(e.Node) + " " + styles.Muted.Render("["+e.Type+"]")
		if e.Label != "" {
			line += " " + e.Label
		}
		if e.Clone {
			line += " " + styles.Info.Render("(clone)")
		}
		if extras := entryExtras(e, show); extras != "" {
			line += "  " + styles.Muted.Render(extras)
		}
		r.Println(line)
	}
	r.Println("")
}

// listMarkdown outputs the outline as a nested markdown list.
func listMarkdown(r *output.Renderer, out ListOutput, show []string) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Outline (%d nodes, %d positions)", out.Summary.Nodes, out.Summary.Positions)))
	r.Println("")

	for _, e := range out.Entries {
		line := strings.Repeat("  ", e.Depth) + "- **" + e.Node + "** (" + e.Type + ")"
		if e.Label != "" {
			line += " " + e.Label
		}
		if e.Clone {
			line += " _clone_"
		}
		if extras := entryExtras(e, show); extras != "" {
			line += " `" + extras + "`"
		}
		r.Println(line)
	}
	r.Println("")
}
