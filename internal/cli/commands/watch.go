package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/internal/watch"
)

// reloadEvent is one reload attempt reported by the schema watcher.
type reloadEvent struct {
	eng *engine.Engine
	err error
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the schema on change and re-check formulas",
		Long: `Watch the schema file and rebuild every data type whenever it changes.
Each reload recompiles the Math fields and checks them for circular
references. A schema that fails to load is reported and the previous one
stays in effect.

With --regenerate the outline's Math fields are also recomputed after each
successful reload and the changes are listed (the outline is not written).`,
		Example: `  leapnote watch
  leapnote watch --regenerate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, regenerate)
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Recompute the outline after each reload")
	return cmd
}

func runWatch(cmd *cobra.Command, regenerate bool) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	if err := cmdCtx.Cfg.ValidateFiles(regenerate); err != nil {
		return err
	}
	r := cmdCtx.Renderer

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan reloadEvent, 1)
	holder, err := watch.New(watch.Config{
		SchemaPath: cmdCtx.Cfg.Schema,
		Engine:     engine.Config{BlankAsZero: cmdCtx.Cfg.BlankAsZero},
		Logger:     cmdCtx.Logger,
		OnReload: func(e *engine.Engine, err error) {
			select {
			case events <- reloadEvent{eng: e, err: err}:
			case <-ctx.Done():
			}
		},
	})
	if err != nil {
		return err
	}

	report := func(e *engine.Engine) {
		cmdCtx.Engine = e
		if err := e.CheckForCycles(); err != nil {
			r.Error(err.Error())
			return
		}
		for _, err := range e.CompileErrors() {
			r.Warning(err.Error())
		}
		r.Success(fmt.Sprintf("%d types loaded, no circular references", len(e.Registry().Names())))
		if regenerate {
			reportRegenerate(ctx, cmdCtx)
		}
	}

	report(holder.Engine())
	r.Println(fmt.Sprintf("Watching %s (Ctrl+C to stop)", cmdCtx.Cfg.Schema))

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return holder.Watch(egctx)
	})
	eg.Go(func() error {
		for {
			select {
			case <-egctx.Done():
				return nil
			case ev := <-events:
				if ev.err != nil {
					r.Error("schema not reloaded: " + ev.err.Error())
					continue
				}
				report(ev.eng)
			}
		}
	})

	return eg.Wait()
}

func reportRegenerate(ctx context.Context, cmdCtx *CommandContext) {
	r := cmdCtx.Renderer
	tree, err := cmdCtx.LoadOutline()
	if err != nil {
		r.Error(err.Error())
		return
	}
	updates, err := cmdCtx.Engine.Regenerate(ctx, tree.Root())
	for _, u := range updates {
		r.Println(fmt.Sprintf("  %s.%s: %q -> %q", u.NodeID, u.Field, u.Old, u.New))
	}
	if err != nil {
		r.Error(err.Error())
	}
}
