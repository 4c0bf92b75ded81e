package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapnote/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapnote project",
		Long: `Initialize a new leapnote project with a configuration file, a schema and an outline.

This creates:
  - leapnote.yaml project configuration
  - schema.yaml with the node types, their fields, rules and formulas
  - outline.yaml with the outline itself

Use --example to create a small project plan with typed fields, a conditional
rule, Math fields rolling totals up the tree and a cloned task.`,
		Example: `  # Initialize in current directory
  leapnote init

  # Initialize with a full working example
  leapnote init --example

  # Initialize in a new directory
  leapnote init my-notes --example

  # Force overwrite existing files
  leapnote init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			if example {
				return runInitExample(r, dir, force)
			}
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example project with rules, formulas and clones")

	return cmd
}

// prepareDir creates dir when needed and refuses to clobber an existing
// project unless force is set.
func prepareDir(dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}
	return nil
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := prepareDir(dir, force); err != nil {
		return err
	}

	if err := copyTemplate("minimal", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles("minimal")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("leapnote project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Describe your node types in schema.yaml")
	r.Println("  2. Add nodes to outline.yaml")
	r.Println("  3. Run 'leapnote doctor' to check the project")
	r.Println("  4. Run 'leapnote fields' to see all types")

	return nil
}

func runInitExample(r *output.Renderer, dir string, force bool) error {
	if err := prepareDir(dir, force); err != nil {
		return err
	}

	if err := copyTemplate("example", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles("example")
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Header(2, "Schema")
	for _, f := range groups["schema"] {
		r.StatusLine(f, "success", "types, rules and formulas")
	}

	r.Println("")
	r.Header(2, "Outline")
	for _, f := range groups["outline"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("leapnote project initialized with example data!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  leapnote list          View the outline")
	r.Println("  leapnote regenerate    Recompute every Math field")
	r.Println("  leapnote assign        See which tasks the rules retype")
	r.Println("  leapnote dag           Visualize the formula dependencies")

	return nil
}
