// Package watch keeps an engine in step with its schema file. The registry
// is rebuilt wholesale on every change; a schema that fails to load leaves
// the previous engine in place.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/leapnote/internal/config"
	"github.com/leapstack-labs/leapnote/internal/engine"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to end.
const DefaultDebounce = 100 * time.Millisecond

// Config holds holder configuration.
type Config struct {
	// SchemaPath is the schema file to load and watch.
	SchemaPath string
	// Engine supplies the engine options; its Registry is replaced by the
	// one loaded from SchemaPath.
	Engine engine.Config
	// Debounce overrides DefaultDebounce.
	Debounce time.Duration
	// OnReload is called after every reload attempt from Watch.
	OnReload func(*engine.Engine, error)
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Holder holds the current engine. Engine is safe to call from any
// goroutine while Watch runs.
type Holder struct {
	cfg     Config
	path    string
	logger  *slog.Logger
	current atomic.Pointer[engine.Engine]
}

// New loads the schema and builds the first engine.
func New(cfg Config) (*Holder, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	path, err := filepath.Abs(cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("resolve schema path: %w", err)
	}
	h := &Holder{cfg: cfg, path: path, logger: logger}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// Engine returns the engine built from the last schema that loaded.
func (h *Holder) Engine() *engine.Engine {
	return h.current.Load()
}

// Reload rebuilds the engine from the schema file. On error the current
// engine is kept.
func (h *Holder) Reload() error {
	reg, err := config.LoadSchema(h.path)
	if err != nil {
		return err
	}
	ecfg := h.cfg.Engine
	ecfg.Registry = reg
	if ecfg.Logger == nil {
		ecfg.Logger = h.logger
	}
	e, err := engine.New(ecfg)
	if err != nil {
		return err
	}
	h.current.Store(e)
	h.logger.Debug("schema loaded", "path", h.path, "types", len(reg.Names()))
	return nil
}

// Watch reloads the engine whenever the schema file changes and blocks
// until ctx is cancelled. The directory is watched rather than the file so
// that editors that replace the file on save are followed.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(h.path), err)
	}
	h.logger.Info("watching schema", "path", h.path)

	// Debounce timer
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != h.path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(h.cfg.Debounce)
			} else {
				timer.Reset(h.cfg.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := h.Reload()
			if err != nil {
				h.logger.Error("schema reload failed", "path", h.path, "error", err)
			} else {
				h.logger.Info("schema reloaded", "path", h.path)
			}
			if h.cfg.OnReload != nil {
				h.cfg.OnReload(h.Engine(), err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error("watcher error", "error", err)
		}
	}
}
