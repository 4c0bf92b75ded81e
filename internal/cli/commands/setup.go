package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/config"
	"github.com/leapstack-labs/leapnote/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapnote/internal/config"
	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/pkg/outline"
	"github.com/leapstack-labs/leapnote/pkg/schema"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext loads the schema and creates the engine and renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	if err := cmdCtx.Cfg.ValidateFiles(false); err != nil {
		return nil, err
	}

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	cmdCtx.Engine = eng
	return cmdCtx, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that never read the schema.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// LoadOutline reads the configured outline file.
func (c *CommandContext) LoadOutline() (*outline.Tree, error) {
	if err := c.Cfg.ValidateFiles(true); err != nil {
		return nil, err
	}
	tree, err := outline.LoadFile(c.Cfg.Outline)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("outline loaded", "path", c.Cfg.Outline, "nodes", tree.Len())
	return tree, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		Schema:       getEnvOrDefault("LEAPNOTE_SCHEMA", config.DefaultSchemaFile),
		Outline:      getEnvOrDefault("LEAPNOTE_OUTLINE", config.DefaultOutlineFile),
		BlankAsZero:  os.Getenv("LEAPNOTE_BLANK_AS_ZERO") == "true",
		LogLevel:     getEnvOrDefault("LEAPNOTE_LOG_LEVEL", config.DefaultLogLevel),
		Verbose:      os.Getenv("LEAPNOTE_VERBOSE") == "true",
		OutputFormat: getEnvOrDefault("LEAPNOTE_OUTPUT", config.DefaultOutput),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	reg, err := intconfig.LoadSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Registry:    reg,
		BlankAsZero: cfg.BlankAsZero,
		Logger:      logger,
	})
}

// findPosition returns the first position of a node, or the root when id is empty.
func findPosition(tree *outline.Tree, id string) (*outline.Position, error) {
	if id == "" {
		return tree.Root(), nil
	}
	positions := tree.PositionsOf(id)
	if len(positions) == 0 {
		return nil, fmt.Errorf("node %q not found", id)
	}
	return positions[0], nil
}

// splitFieldRef splits "Type.Field" into its parts. Field names may contain
// dots, so the split is taken where the prefix names a type that has the
// rest as a field; anything else is a bare field name.
func splitFieldRef(reg *schema.Registry, ref string) (typeName, field string) {
	for i := strings.Index(ref, "."); i > 0; {
		if dt, ok := reg.Type(ref[:i]); ok {
			if _, ok := dt.Field(ref[i+1:]); ok {
				return ref[:i], ref[i+1:]
			}
		}
		next := strings.Index(ref[i+1:], ".")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", ref
}
