package commands

import (
	"iter"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/rules"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// FindOptions holds options for the find command.
type FindOptions struct {
	Type    string   // Check clauses against this data type first
	Combine string   // and | or
	Filter  bool     // One result per node record instead of per position
	Show    []string // Fields whose display values are printed
}

// Match is one node in the find command output.
type Match struct {
	Node   string            `json:"node"`
	Type   string            `json:"type"`
	Depth  int               `json:"depth"`
	Values map[string]string `json:"values,omitempty"`
}

// NewFindCommand creates the find command.
func NewFindCommand() *cobra.Command {
	opts := &FindOptions{}
	cmd := &cobra.Command{
		Use:   "find <clause>...",
		Short: "Find nodes whose fields satisfy a condition",
		Long: `Search the outline for nodes whose fields satisfy every clause (--combine
and) or any clause (--combine or). A clause is "Field operator value", with
operators ==, !=, <, <=, >, >=, contains, startswith, endswith, true, false,
empty and notempty. Text comparisons ignore case.

Cloned nodes are reported at every position they occupy; --filter reports
each node once.`,
		Example: `  leapnote find "Priority > 3" "Type == Task"
  leapnote find --combine or "Done true" "Notes contains urgent"
  leapnote find --type Task --show Name --show Due "Due < 2024-06-01"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "Data type to check the clauses against")
	cmd.Flags().StringVarP(&opts.Combine, "combine", "c", "and", "How clauses combine: and, or")
	cmd.Flags().BoolVar(&opts.Filter, "filter", false, "Report each node once")
	cmd.Flags().StringArrayVarP(&opts.Show, "show", "s", nil, "Field to display for each match (repeatable)")

	_ = cmd.RegisterFlagCompletionFunc("combine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"and", "or"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runFind(cmd *cobra.Command, args []string, opts *FindOptions) error {
	cond, err := parseCondition(args, opts.Combine)
	if err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	eng := cmdCtx.Engine
	if opts.Type != "" {
		if err := eng.CheckCondition(opts.Type, cond); err != nil {
			return err
		}
	}

	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		return err
	}

	var seq iter.Seq[outline.NodeView]
	if opts.Filter {
		seq = eng.Filter(tree.Root(), cond)
	} else {
		seq = eng.FindMatching(outline.Walk(tree.Root()), cond)
	}

	var matches []Match
	for node := range seq {
		m := Match{Node: node.ID(), Type: node.DataType(), Depth: outline.Depth(node)}
		m.Values = displayValues(eng, node, opts.Show)
		matches = append(matches, m)
	}
	cmdCtx.Logger.Debug("find", "condition", cond.String(), "matches", len(matches))

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if matches == nil {
			matches = []Match{}
		}
		return r.JSON(matches)
	}

	headers := append([]string{"Node", "Type", "Depth"}, opts.Show...)
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		row := []string{m.Node, m.Type, strconv.Itoa(m.Depth)}
		for _, name := range opts.Show {
			row = append(row, m.Values[name])
		}
		rows = append(rows, row)
	}
	r.Table(headers, rows)
	return nil
}

func parseCondition(args []string, combine string) (rules.Condition, error) {
	var cond rules.Condition
	c, err := schema.ParseCombine(combine)
	if err != nil {
		return cond, err
	}
	cond.Combine = c
	for _, arg := range args {
		clause, err := rules.ParseClause(arg)
		if err != nil {
			return cond, err
		}
		cond.Clauses = append(cond.Clauses, clause)
	}
	return cond, nil
}
