package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/leapstack-labs/leapnote/internal/cli/config"
	"github.com/leapstack-labs/leapnote/internal/cli/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_StoresConfigAndRenderer(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"version", "-o", "json"})
	require.NoError(t, root.Execute())

	sub, _, err := root.Find([]string{"version"})
	require.NoError(t, err)
	require.NotNil(t, sub.Context())

	assert.Equal(t, "json", GetConfig(sub.Context()).OutputFormat)
	r := GetRenderer(sub.Context())
	require.NotNil(t, r)
	assert.Equal(t, output.ModeJSON, r.EffectiveMode())
	assert.NotNil(t, config.GetLogger(sub.Context()))
}

func TestGetConfig_Defaults(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, config.DefaultSchemaFile, cfg.Schema)
	assert.Equal(t, config.DefaultOutlineFile, cfg.Outline)
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)

	r := GetRenderer(context.Background())
	assert.Contains(t, []output.OutputMode{output.ModeText, output.ModeMarkdown}, r.EffectiveMode())
}

func TestVersionFlag(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "leapnote "+Version)
	assert.Contains(t, out.String(), "commit "+GitCommit)
}
