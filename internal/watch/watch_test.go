package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapnote/internal/engine"
	"github.com/leapstack-labs/leapnote/internal/testutil"
)

const itemSchema = `types:
  - name: Item
    fields:
      - name: Amount
        kind: Number
`

const itemAndTaskSchema = itemSchema + `  - name: Task
    fields:
      - name: Done
        kind: Boolean
`

func writeSchema(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, itemSchema)

	h, err := New(Config{SchemaPath: path, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Item"}, h.Engine().Registry().Names())

	_, err = New(Config{SchemaPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestReload_KeepsEngineOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	writeSchema(t, path, itemSchema)

	h, err := New(Config{SchemaPath: path, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	before := h.Engine()

	writeSchema(t, path, "types: [\n")
	assert.Error(t, h.Reload())
	assert.Same(t, before, h.Engine())

	writeSchema(t, path, itemAndTaskSchema)
	require.NoError(t, h.Reload())
	assert.Equal(t, []string{"Item", "Task"}, h.Engine().Registry().Names())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	writeSchema(t, path, itemSchema)

	var reloads atomic.Int32
	h, err := New(Config{
		SchemaPath: path,
		Debounce:   10 * time.Millisecond,
		Logger:     testutil.NewTestLogger(t),
		OnReload: func(_ *engine.Engine, err error) {
			if err == nil {
				reloads.Add(1)
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return h.Watch(egctx) })

	// Unrelated files in the directory are ignored.
	writeSchema(t, filepath.Join(dir, "other.yaml"), "x: 1\n")

	// Give the watcher time to register before writing.
	require.Eventually(t, func() bool {
		writeSchema(t, path, itemAndTaskSchema)
		return reloads.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"Item", "Task"}, h.Engine().Registry().Names())

	cancel()
	require.NoError(t, eg.Wait())
}
