package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/pkg/formula"
)

// FieldDeps describes what one Math field reads and what reads it.
type FieldDeps struct {
	Field  string   `json:"field"`
	Reads  []string `json:"reads,omitempty"`
	ReadBy []string `json:"read_by,omitempty"`

	// Upstream lists every field read directly or through other formulas.
	Upstream []string `json:"upstream,omitempty"`
}

// DAGOutput is the JSON output of the dag command.
type DAGOutput struct {
	Fields     []FieldDeps `json:"fields"`
	TotalEdges int         `json:"total_edges"`
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dag",
		Short: "Show the formula dependency graph",
		Long: `Display the type-level dependency graph of the Math fields: for each field,
the fields its formula reads and the fields whose formulas read it. Each edge
is labelled with the direction of the reference (self, up, down, root).

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph
  leapnote dag

  # Output as JSON
  leapnote dag --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd)
		},
	}
}

func runDAG(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	prog := cmdCtx.Engine.Program()
	keys := prog.Keys()
	out := buildDAGOutput(keys, prog.Dependencies())
	for i, k := range keys {
		for _, up := range prog.Upstream(k) {
			out.Fields[i].Upstream = append(out.Fields[i].Upstream, up.String())
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		dagMarkdown(r, out)
	default:
		dagText(r, out)
	}
	return nil
}

func buildDAGOutput(keys []formula.FieldKey, deps []formula.Dependency) DAGOutput {
	byField := make(map[formula.FieldKey]*FieldDeps, len(keys))
	out := DAGOutput{Fields: make([]FieldDeps, len(keys)), TotalEdges: len(deps)}
	for i, k := range keys {
		out.Fields[i].Field = k.String()
		byField[k] = &out.Fields[i]
	}
	for _, d := range deps {
		if fd, ok := byField[d.To]; ok {
			fd.Reads = append(fd.Reads, fmt.Sprintf("%s (%s)", d.From, d.Via))
		}
		if fd, ok := byField[d.From]; ok {
			fd.ReadBy = append(fd.ReadBy, fmt.Sprintf("%s (%s)", d.To, d.Via))
		}
	}
	return out
}

// dagText outputs the graph in styled text format.
func dagText(r *output.Renderer, out DAGOutput) {
	styles := r.Styles()

	r.Header(1, "Formula Dependencies")

	for _, f := range out.Fields {
		r.Printf("  %s\n", styles.Bold.Render(f.Field))
		if len(f.Reads) > 0 {
			r.Printf("    %s %s\n", styles.Muted.Render("reads:"), strings.Join(f.Reads, ", "))
		}
		if len(f.ReadBy) > 0 {
			r.Printf("    %s %s\n", styles.Muted.Render("read by:"), strings.Join(f.ReadBy, ", "))
		}
		if len(f.Upstream) > 0 {
			r.Printf("    %s %s\n", styles.Muted.Render("all inputs:"), strings.Join(f.Upstream, ", "))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d formulas, %d dependencies", len(out.Fields), out.TotalEdges)))
}

// dagMarkdown outputs the graph in markdown format.
func dagMarkdown(r *output.Renderer, out DAGOutput) {
	r.Println(output.FormatHeader(1, "Formula Dependencies"))
	r.Println("")

	for _, f := range out.Fields {
		r.Printf("- %s\n", f.Field)
		if len(f.Reads) > 0 {
			r.Printf("  - reads: %s\n", strings.Join(f.Reads, ", "))
		}
		if len(f.ReadBy) > 0 {
			r.Printf("  - read by: %s\n", strings.Join(f.ReadBy, ", "))
		}
		if len(f.Upstream) > 0 {
			r.Printf("  - all inputs: %s\n", strings.Join(f.Upstream, ", "))
		}
	}
	r.Println("")

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Formulas", fmt.Sprintf("%d", len(out.Fields))))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", out.TotalEdges)))
}
