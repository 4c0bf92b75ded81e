package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/pkg/fieldformat"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/rules"
)

// Health check ids.
const (
	checkCompile  = "FM01"
	checkCycles   = "FM02"
	checkRules    = "RL01"
	checkTypes    = "OL01"
	checkValues   = "OL02"
	checkUnknown  = "OL03"
	checkUpToDate = "OL04"
)

// maxRecommendations caps the list shown after the checks.
const maxRecommendations = 5

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a comprehensive project health check",
		Long: `Analyze the schema and outline of a leapnote project for problems.

The doctor command runs every health check and reports:
- Project summary (types, fields, formulas, rules, nodes, clones)
- Health checks grouped by category (Formulas, Rules, Outline)
- Health score (0-100)
- Actionable recommendations

Outline checks are skipped when the outline file does not exist.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  leapnote doctor

  # Output as JSON
  leapnote doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Types     int `json:"types"`
	Fields    int `json:"fields"`
	Formulas  int `json:"formulas"`
	Rules     int `json:"rules"`
	Nodes     int `json:"nodes"`
	Positions int `json:"positions"`
	Clones    int `json:"clones"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error", "skip"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func newCheck(id, name, group, failStatus string, details []string) HealthCheck {
	status := "pass"
	if len(details) > 0 {
		status = failStatus
	}
	return HealthCheck{RuleID: id, Name: name, Group: group, Status: status, IssueCount: len(details), Details: details}
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	var tree *outline.Tree
	if cmdCtx.Cfg.ValidateFiles(true) == nil {
		tree, err = cmdCtx.LoadOutline()
		if err != nil {
			return err
		}
	}

	doctorOutput := buildDoctorOutput(cmd.Context(), cmdCtx.Engine, tree)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(doctorOutput)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, doctorOutput)
	default:
		return renderDoctorText(r, doctorOutput)
	}
}

func buildDoctorOutput(ctx context.Context, eng *engine.Engine, tree *outline.Tree) *DoctorOutput {
	out := &DoctorOutput{Summary: buildProjectSummary(eng, tree)}

	out.HealthChecks = append(out.HealthChecks,
		newCheck(checkCompile, "Formulas compile", "formulas", "error", errorStrings(eng.CompileErrors())),
		newCheck(checkCycles, "No circular references", "formulas", "error", cycleDetails(eng)),
		newCheck(checkRules, "Rule clauses fit their fields", "rules", "error", ruleDetails(eng)),
	)

	outlineChecks := []struct{ id, name, fail string }{
		{checkTypes, "Nodes have known types", "error"},
		{checkValues, "Stored values fit their fields", "warn"},
		{checkUnknown, "Stored values belong to defined fields", "warn"},
		{checkUpToDate, "Math fields are up to date", "warn"},
	}
	if tree == nil {
		for _, c := range outlineChecks {
			out.HealthChecks = append(out.HealthChecks, HealthCheck{RuleID: c.id, Name: c.name, Group: "outline", Status: "skip"})
		}
	} else {
		typeIssues, valueIssues, unknownIssues := outlineDetails(eng, tree)
		out.HealthChecks = append(out.HealthChecks,
			newCheck(checkTypes, outlineChecks[0].name, "outline", "error", typeIssues),
			newCheck(checkValues, outlineChecks[1].name, "outline", "warn", valueIssues),
			newCheck(checkUnknown, outlineChecks[2].name, "outline", "warn", unknownIssues),
			newCheck(checkUpToDate, outlineChecks[3].name, "outline", "warn", staleDetails(ctx, eng, tree)),
		)
	}

	for _, c := range out.HealthChecks {
		out.IssueCount += c.IssueCount
	}
	out.Score = calculateHealthScore(out.HealthChecks, out.Summary.Nodes)
	out.Recommendations = generateRecommendations(out.HealthChecks)
	return out
}

func buildProjectSummary(eng *engine.Engine, tree *outline.Tree) ProjectSummary {
	var s ProjectSummary
	for _, dt := range eng.Registry().Types() {
		s.Types++
		s.Fields += len(dt.Fields())
		s.Formulas += len(dt.MathFields())
		s.Rules += len(dt.Rules())
	}
	if tree != nil {
		s.Nodes = tree.Len()
		s.Positions = len(tree.Positions())
		s.Clones = s.Positions - s.Nodes
	}
	return s
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func cycleDetails(eng *engine.Engine) []string {
	err := eng.CheckForCycles()
	if err == nil {
		return nil
	}
	var batch *engine.BatchError
	if errors.As(err, &batch) {
		return errorStrings(batch.Errors)
	}
	return []string{err.Error()}
}

func ruleDetails(eng *engine.Engine) []string {
	var details []string
	reg := eng.Registry()
	for _, dt := range reg.Types() {
		for i, rule := range dt.Rules() {
			if _, ok := reg.Type(rule.Target); !ok {
				details = append(details, fmt.Sprintf("%s rule %d: unknown target type %q", dt.Name(), i+1, rule.Target))
			}
			cond := rules.Condition{Combine: rule.Combine, Clauses: rule.Clauses}
			if err := eng.CheckCondition(dt.Name(), cond); err != nil {
				for _, line := range strings.Split(err.Error(), "\n") {
					details = append(details, fmt.Sprintf("%s rule %d: %s", dt.Name(), i+1, line))
				}
			}
		}
	}
	return details
}

// outlineDetails validates each node record once, in preorder.
func outlineDetails(eng *engine.Engine, tree *outline.Tree) (types, values, unknown []string) {
	reg := eng.Registry()
	seen := make(map[string]bool)
	for _, pos := range tree.Positions() {
		if seen[pos.ID()] {
			continue
		}
		seen[pos.ID()] = true

		node, _ := tree.Node(pos.ID())
		dt, ok := reg.Type(node.Type)
		if !ok {
			types = append(types, fmt.Sprintf("node %s: unknown data type %q", node.ID, node.Type))
			continue
		}
		for _, name := range slices.Sorted(maps.Keys(node.Values)) {
			v := node.Values[name]
			f, ok := dt.Field(name)
			if !ok {
				unknown = append(unknown, fmt.Sprintf("node %s: %s has no field %q", node.ID, dt.Name(), name))
				continue
			}
			if v == "" || f.Kind == fieldformat.Math {
				continue
			}
			if canonical, err := f.Validate(v); err != nil {
				values = append(values, fmt.Sprintf("node %s: %v", node.ID, err))
			} else if canonical != v {
				values = append(values, fmt.Sprintf("node %s: %s is stored as %q, canonical form is %q", node.ID, name, v, canonical))
			}
		}
	}
	return types, values, unknown
}

func staleDetails(ctx context.Context, eng *engine.Engine, tree *outline.Tree) []string {
	updates, err := eng.Regenerate(ctx, tree.Root())
	details := make([]string, 0, len(updates))
	for _, u := range updates {
		details = append(details, fmt.Sprintf("node %s: %s is %q, computes to %q", u.NodeID, u.Field, u.Old, u.New))
	}
	var batch *engine.BatchError
	switch {
	case errors.As(err, &batch):
		details = append(details, errorStrings(batch.Errors)...)
	case err != nil:
		details = append(details, err.Error())
	}
	return details
}

// calculateHealthScore computes a score from 0 to 100.
// - Each issue reduces points
// - Larger outlines make each individual issue weigh less
func calculateHealthScore(checks []HealthCheck, nodeCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if nodeCount > 50 {
		basePenalty = 3.0
	}
	if nodeCount > 500 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2 // Errors count double
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	// Clamp to 0-100
	score = max(0, min(100, score))

	return int(score)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		if rec := getRecommendation(check.RuleID); rec != "" {
			recommendations = append(recommendations, rec)
		}
		if len(recommendations) == maxRecommendations {
			break
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case checkCompile:
		return "Fix the equations that do not compile; their fields are never computed"
	case checkCycles:
		return "Break circular references so that no formula reads its own result"
	case checkRules:
		return "Correct rule clauses whose fields, operators or values do not fit the type"
	case checkTypes:
		return "Define the missing data types in the schema or retype the nodes"
	case checkValues:
		return "Re-enter stored values that no longer fit their field formats"
	case checkUnknown:
		return "Remove values of fields the node's type does not define"
	case checkUpToDate:
		return "Run 'leapnote regenerate --write' to store the current formula results"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	// Header
	r.Println("")
	r.Println(styles.Header1.Render("leapnote Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	// Project Summary
	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Types: %d | Fields: %d | Formulas: %d | Rules: %d\n", out.Summary.Types, out.Summary.Fields, out.Summary.Formulas, out.Summary.Rules)
	r.Printf("   Nodes: %d | Positions: %d | Clones: %d\n", out.Summary.Nodes, out.Summary.Positions, out.Summary.Clones)
	r.Println("")

	// Health Checks grouped by category
	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.StatusFailed.String()
		case "skip":
			icon = styles.Muted.Render("-")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details for issues
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	// Health Score
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	// Recommendations
	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# leapnote Project Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Println(output.FormatKeyValue("Types", fmt.Sprint(out.Summary.Types)))
	r.Println(output.FormatKeyValue("Fields", fmt.Sprint(out.Summary.Fields)))
	r.Println(output.FormatKeyValue("Formulas", fmt.Sprint(out.Summary.Formulas)))
	r.Println(output.FormatKeyValue("Rules", fmt.Sprint(out.Summary.Rules)))
	r.Println(output.FormatKeyValue("Nodes", fmt.Sprint(out.Summary.Nodes)))
	r.Println(output.FormatKeyValue("Clones", fmt.Sprint(out.Summary.Clones)))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")
	rows := make([][]string, 0, len(out.HealthChecks))
	for _, check := range out.HealthChecks {
		rows = append(rows, []string{check.RuleID, check.Name, check.Status, fmt.Sprint(check.IssueCount)})
	}
	r.Table([]string{"ID", "Check", "Status", "Issues"}, rows)
	r.Println("")

	for _, check := range out.HealthChecks {
		if len(check.Details) == 0 {
			continue
		}
		r.Printf("### %s: %s\n\n", check.RuleID, check.Name)
		for _, d := range check.Details {
			r.Println("- " + d)
		}
		r.Println("")
	}

	r.Printf("**Health Score:** %d/100\n\n", out.Score)

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
	return nil
}
