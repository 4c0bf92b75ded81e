package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapnote/internal/cli/output"
)

// VersionInfo is the build information shown by the version command.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Built   string `json:"built,omitempty"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapnote version and build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutEngine(cmd).Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(info)
			}
			r.Printf("leapnote v%s\n", info.Version)
			r.Println("Typed fields, conditional rules and formulas for outlines")
			if info.Commit != "" {
				r.KeyValue("Commit", info.Commit)
			}
			if info.Built != "" {
				r.KeyValue("Built", info.Built)
			}
			return nil
		},
	}
}
