package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/pkg/outline"
)

// Assignment is one node whose type rules would change its type.
type Assignment struct {
	Node     string `json:"node"`
	Current  string `json:"current"`
	Assigned string `json:"assigned"`
}

// NewAssignCommand creates the assign command.
func NewAssignCommand() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Apply conditional type rules to the outline",
		Long: `Evaluate the conditional rules of each node's data type and list the nodes
whose first matching rule assigns a different type. Rules are tried in order;
a node that matches none keeps its type. Cloned nodes are listed once.

With --write the new types are saved to the outline file.`,
		Example: `  leapnote assign
  leapnote assign --write`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssign(cmd, write)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Save the assigned types to the outline file")
	return cmd
}

func runAssign(cmd *cobra.Command, write bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		return err
	}

	var changes []Assignment
	seen := make(map[string]bool)
	for node := range outline.Walk(tree.Root()) {
		if seen[node.ID()] {
			continue
		}
		seen[node.ID()] = true
		dt, ok := cmdCtx.Engine.AssignTypeByRules(node, "")
		if !ok || dt.Name() == node.DataType() {
			continue
		}
		changes = append(changes, Assignment{Node: node.ID(), Current: node.DataType(), Assigned: dt.Name()})
	}

	if write && len(changes) > 0 {
		for _, c := range changes {
			if err := tree.SetType(c.Node, c.Assigned); err != nil {
				return err
			}
		}
		if err := tree.SaveFile(cmdCtx.Cfg.Outline); err != nil {
			return err
		}
		cmdCtx.Logger.Info("types assigned", "nodes", len(changes), "path", cmdCtx.Cfg.Outline)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if changes == nil {
			changes = []Assignment{}
		}
		return r.JSON(changes)
	}
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{c.Node, c.Current, c.Assigned})
	}
	r.Table([]string{"Node", "Current", "Assigned"}, rows)
	if write && len(changes) > 0 {
		r.Success("saved " + cmdCtx.Cfg.Outline)
	}
	return nil
}
