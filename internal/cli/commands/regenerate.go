package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/pkg/formula"
)

// RegenerateResult is the JSON output of the regenerate command.
type RegenerateResult struct {
	Updates []engine.Update `json:"updates"`
	Errors  []string        `json:"errors,omitempty"`
	Written bool            `json:"written"`
}

// NewRegenerateCommand creates the regenerate command.
func NewRegenerateCommand() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Recompute every Math field in the outline",
		Long: `Recompute every Math field of the outline in dependency order, so that a
field is evaluated after the fields it reads. A circular reference aborts the
run before anything is computed. Fields whose formulas fail keep their old
value and are reported together.

With --write the changed values are saved to the outline file.`,
		Example: `  leapnote regenerate
  leapnote regenerate --write --blank-as-zero`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegenerate(cmd, write)
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Save the recomputed values to the outline file")
	return cmd
}

func runRegenerate(cmd *cobra.Command, write bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		return err
	}

	updates, runErr := cmdCtx.Engine.Regenerate(cmd.Context(), tree.Root())
	var batch *engine.BatchError
	if runErr != nil {
		// A cycle or a cancelled context aborts before anything is computed.
		if !errors.As(runErr, &batch) || errors.Is(runErr, &formula.Error{Kind: formula.CircularReference}) {
			return runErr
		}
	}

	res := RegenerateResult{Updates: updates}
	if res.Updates == nil {
		res.Updates = []engine.Update{}
	}
	if batch != nil {
		for _, e := range batch.Errors {
			res.Errors = append(res.Errors, e.Error())
		}
	}

	if write && len(updates) > 0 {
		if err := engine.Apply(tree, updates); err != nil {
			return err
		}
		if err := tree.SaveFile(cmdCtx.Cfg.Outline); err != nil {
			return err
		}
		res.Written = true
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(res); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(updates))
		for _, u := range updates {
			rows = append(rows, []string{u.NodeID, u.Type + "." + u.Field, u.Old, u.New})
		}
		r.Table([]string{"Node", "Field", "Old", "New"}, rows)
		for _, msg := range res.Errors {
			r.Error(msg)
		}
		if res.Written {
			r.Success("saved " + cmdCtx.Cfg.Outline)
		}
	}
	return runErr
}
