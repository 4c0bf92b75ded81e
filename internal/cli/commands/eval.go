package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
)

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	Node string // Node id; the root when empty
	Expr string // Ad hoc expression instead of a Math field
}

// EvalResult is the JSON output of the eval command.
type EvalResult struct {
	Node    string `json:"node"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Expr    string `json:"expr,omitempty"`
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}
	cmd := &cobra.Command{
		Use:   "eval [type.]field",
		Short: "Evaluate a Math field or an expression at a node",
		Long: `Evaluate the formula of a Math field at one node of the outline, or an
ad hoc expression given with --expr. Field references in the expression
resolve from that node: self, parent, root, child (inside an aggregate) and
ancestor levels.`,
		Example: `  # Evaluate a Math field at a node
  leapnote eval Task.Total --node t1

  # Evaluate an expression at the root
  leapnote eval --expr "sum(child.Amount) * 2"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1 && opts.Expr != "":
				return errors.New("give either a field or --expr, not both")
			case len(args) == 0 && opts.Expr == "":
				return errors.New("a field or --expr is required")
			}
			field := ""
			if len(args) == 1 {
				field = args[0]
			}
			return runEval(cmd, field, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Node, "node", "n", "", "Node id to evaluate at (default: root)")
	cmd.Flags().StringVarP(&opts.Expr, "expr", "e", "", "Expression to evaluate")

	return cmd
}

func runEval(cmd *cobra.Command, fieldRef string, opts *EvalOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		return err
	}
	node, err := findPosition(tree, opts.Node)
	if err != nil {
		return err
	}

	eng := cmdCtx.Engine
	res := EvalResult{Node: node.ID(), Type: node.DataType()}

	if opts.Expr != "" {
		v, err := eng.EvaluateExpression(node, opts.Expr)
		if err != nil {
			return err
		}
		res.Expr = opts.Expr
		res.Value = v.String()
		res.Kind = v.Type().String()
	} else {
		typeName, field := splitFieldRef(eng.Registry(), fieldRef)
		if typeName != "" && typeName != node.DataType() {
			return fmt.Errorf("node %s is a %s, not a %s", node.ID(), node.DataType(), typeName)
		}
		value, err := eng.EvaluateFormula(node, field)
		if err != nil {
			return err
		}
		res.Field = field
		res.Value = value
		res.Display, _ = eng.FormatFieldForDisplay(node.DataType(), field, value)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeMarkdown:
		r.Println(output.FormatKeyValue("Value", res.Value))
		if res.Display != "" && res.Display != res.Value {
			r.Println(output.FormatKeyValue("Display", res.Display))
		}
	default:
		if res.Display != "" {
			r.Println(res.Display)
		} else {
			r.Println(res.Value)
		}
	}
	return nil
}
