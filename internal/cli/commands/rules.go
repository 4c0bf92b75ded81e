package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/pkg/rules"
	"github.com/spf13/cobra"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Target  string // Filter by target type
	Verbose bool   // Show one line per clause
	Format  string // Output format
}

// RuleInfo describes one conditional rule of a type.
type RuleInfo struct {
	Type      string   `json:"type"`
	Index     int      `json:"index"`
	Target    string   `json:"target"`
	Combine   string   `json:"combine"`
	Clauses   []string `json:"clauses"`
	Condition string   `json:"condition"`
	Issue     string   `json:"issue,omitempty"`
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules []RuleInfo `json:"rules"`
	Count struct {
		Types  int `json:"types"`
		Rules  int `json:"rules"`
		Issues int `json:"issues"`
	} `json:"count"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [type]",
		Short: "List the conditional type rules",
		Long: `List the conditional rules that assign a new type to nodes.

Rules are evaluated in order; the first rule whose condition holds decides
the node's type. A derived type uses the rules of its generic type.
Rules naming an unknown target type or an invalid clause are flagged.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  leapnote rules

  # Show the rules deciding the type of Task nodes
  leapnote rules Task

  # Only rules that assign Urgent
  leapnote rules --target Urgent

  # One line per clause
  leapnote rules -V

  # Output as JSON
  leapnote rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typeName := ""
			if len(args) > 0 {
				typeName = args[0]
			}
			return runRules(cmd, typeName, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Filter by target type")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show one line per clause")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

func runRules(cmd *cobra.Command, typeName string, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	infos, err := collectRules(cmdCtx.Engine, typeName, opts.Target)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listRulesJSON(r, infos)
	case output.ModeMarkdown:
		return listRulesMarkdown(r, infos, opts.Verbose)
	default:
		return listRulesText(r, infos, opts.Verbose)
	}
}

// collectRules gathers the rules of every type, or the rules deciding
// typeName when it is set.
func collectRules(eng *engine.Engine, typeName, target string) ([]RuleInfo, error) {
	reg := eng.Registry()

	names := reg.Names()
	if typeName != "" {
		src, ok := reg.RuleSource(typeName)
		if !ok {
			return nil, fmt.Errorf("unknown type %q", typeName)
		}
		names = []string{src.Name()}
	}

	var infos []RuleInfo
	for _, name := range names {
		dt, _ := reg.Type(name)
		for i, rule := range dt.Rules() {
			if target != "" && rule.Target != target {
				continue
			}
			cond := rules.Condition{Combine: rule.Combine, Clauses: rule.Clauses}
			info := RuleInfo{
				Type:      name,
				Index:     i + 1,
				Target:    rule.Target,
				Combine:   rule.Combine.String(),
				Condition: cond.String(),
				Clauses:   make([]string, len(rule.Clauses)),
			}
			if info.Condition == "" {
				info.Condition = "always"
			}
			for j, c := range rule.Clauses {
				info.Clauses[j] = c.String()
			}
			if _, ok := reg.Type(rule.Target); !ok {
				info.Issue = fmt.Sprintf("unknown target type %q", rule.Target)
			} else if err := eng.CheckCondition(name, cond); err != nil {
				info.Issue = err.Error()
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func countIssues(infos []RuleInfo) int {
	n := 0
	for _, info := range infos {
		if info.Issue != "" {
			n++
		}
	}
	return n
}

func countRuleTypes(infos []RuleInfo) int {
	seen := make(map[string]bool)
	for _, info := range infos {
		seen[info.Type] = true
	}
	return len(seen)
}

// listRulesText outputs rules in styled text format.
func listRulesText(r *output.Renderer, infos []RuleInfo, verbose bool) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Type Rules (%d rules, %d types)", len(infos), countRuleTypes(infos))))
	r.Println("")

	if len(infos) == 0 {
		r.Println(styles.Muted.Render("  No rules defined"))
		r.Println("")
		return nil
	}

	currentType := ""
	for _, info := range infos {
		if info.Type != currentType {
			currentType = info.Type
			r.Println(styles.Header2.Render(currentType))
		}

		line := fmt.Sprintf("  %s  %s %s %s",
			styles.Muted.Render(strconv.Itoa(info.Index)),
			info.Condition,
			styles.Muted.Render("=>"),
			styles.Bold.Render(info.Target),
		)
		r.Println(line)

		if verbose && len(info.Clauses) > 1 {
			r.Println(styles.Muted.Render("       " + info.Combine + " of:"))
			for _, c := range info.Clauses {
				r.Println(styles.Muted.Render("         " + c))
			}
		}
		if info.Issue != "" {
			r.Println("     " + styles.Error.Render(info.Issue))
		}
	}

	r.Println("")
	if n := countIssues(infos); n > 0 {
		r.Println(styles.Warning.Render(fmt.Sprintf("%d rule(s) have issues", n)))
		r.Println("")
	}

	return nil
}

// listRulesMarkdown outputs rules in markdown format.
func listRulesMarkdown(r *output.Renderer, infos []RuleInfo, verbose bool) error {
	r.Println("# Type Rules")
	r.Println("")

	if len(infos) == 0 {
		r.Println("No rules defined.")
		return nil
	}

	currentType := ""
	for _, info := range infos {
		if info.Type != currentType {
			currentType = info.Type
			r.Println("## " + currentType)
			r.Println("")
		}

		r.Printf("%d. `%s` => **%s**\n", info.Index, info.Condition, info.Target)
		if verbose && len(info.Clauses) > 1 {
			for _, c := range info.Clauses {
				r.Printf("   - %s: `%s`\n", info.Combine, c)
			}
		}
		if info.Issue != "" {
			r.Println("   > " + info.Issue)
		}
	}

	r.Println("")
	return nil
}

// listRulesJSON outputs rules in JSON format.
func listRulesJSON(r *output.Renderer, infos []RuleInfo) error {
	jsonOutput := RulesJSONOutput{Rules: infos}
	if jsonOutput.Rules == nil {
		jsonOutput.Rules = []RuleInfo{}
	}
	jsonOutput.Count.Types = countRuleTypes(infos)
	jsonOutput.Count.Rules = len(infos)
	jsonOutput.Count.Issues = countIssues(infos)

	return r.JSON(jsonOutput)
}
