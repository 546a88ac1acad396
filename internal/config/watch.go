package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay is how long after the last write the reload fires. Editors
// and atomic-save tools emit bursts of events for one logical change.
const debounceDelay = 500 * time.Millisecond

// ApplyFunc receives each successfully loaded configuration.
type ApplyFunc func(*Config) error

// Watcher reloads a configuration file on change. A file that fails to load
// or apply is ignored; the previous configuration stays active.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	apply   ApplyFunc
	logger  *slog.Logger
}

// NewWatcher creates a file watcher for the given config path.
func NewWatcher(path string, apply ApplyFunc, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher: watcher,
		path:    path,
		apply:   apply,
		logger:  logger,
	}, nil
}

// Run watches for changes and reloads until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload rejected",
			"path", w.path,
			"error", err)
		return
	}
	if err := w.apply(cfg); err != nil {
		w.logger.Error("config reload not applied",
			"path", w.path,
			"error", err)
		return
	}
	w.logger.Info("configuration reloaded", "path", w.path)
}
