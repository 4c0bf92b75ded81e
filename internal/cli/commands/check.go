package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/leapstack-labs/leapnote/internal/engine"
)

// CheckResult is the JSON output of the check command.
type CheckResult struct {
	Types  []string `json:"types"`
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [type...]",
		Short: "Check formulas for syntax errors and circular references",
		Long: `Compile every Math field and check the dependency graph of the named data
types (all types when none are named) for circular references. Every problem
is reported, not just the first.`,
		Example: `  leapnote check
  leapnote check Task Folder -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}
}

func runCheck(cmd *cobra.Command, types []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	eng := cmdCtx.Engine

	problems := eng.CompileErrors()
	if err := eng.CheckForCycles(types...); err != nil {
		var batch *engine.BatchError
		if !errors.As(err, &batch) {
			return err
		}
		problems = append(problems, batch.Errors...)
	}

	res := CheckResult{Types: types, OK: len(problems) == 0}
	if len(res.Types) == 0 {
		res.Types = eng.Registry().Names()
	}
	for _, p := range problems {
		res.Errors = append(res.Errors, p.Error())
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(res); err != nil {
			return err
		}
	} else {
		for _, msg := range res.Errors {
			r.Error(msg)
		}
		if res.OK {
			r.Success(fmt.Sprintf("%d types checked, no problems", len(res.Types)))
		}
	}

	if !res.OK {
		return &engine.BatchError{Op: "check", Errors: problems}
	}
	return nil
}
