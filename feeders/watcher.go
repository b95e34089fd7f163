package feeders

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoCodeAlone/injector"
	"github.com/fsnotify/fsnotify"
)

// Watcher re-feeds a Configuration when a configuration file changes.
// Editors often replace files instead of writing them in place, so the
// parent directory is watched and events are filtered by file name.
type Watcher struct {
	cfg      *injector.Configuration
	feeder   Feeder
	path     string
	debounce time.Duration
	logger   injector.Logger
	onReload func(error)

	mu      sync.Mutex
	running bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle before
// reloading. The default is 100ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger injector.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnReload registers a callback run after every reload attempt.
func WithOnReload(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher returns a watcher feeding cfg from feeder whenever path changes.
func NewWatcher(cfg *injector.Configuration, feeder Feeder, path string, opts ...WatcherOption) (*Watcher, error) {
	switch {
	case cfg == nil:
		return nil, ErrWatcherNoTarget
	case feeder == nil:
		return nil, ErrWatcherNoFeeder
	case path == "":
		return nil, ErrWatcherNoPath
	}
	w := &Watcher{
		cfg:      cfg,
		feeder:   feeder,
		path:     filepath.Clean(path),
		debounce: 100 * time.Millisecond,
		logger:   injector.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Reload replaces the configuration tree with what the feeder produces.
// Keys removed from the source disappear; on failure the previous tree
// stays in place.
func (w *Watcher) Reload() error {
	err := w.cfg.Load(w.feeder)
	if err != nil {
		w.logger.Warn("Configuration reload failed", "path", w.path, "error", err)
	} else {
		w.logger.Info("Configuration reloaded", "path", w.path)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
	return err
}

// Run watches the file until ctx is done. Reload failures are logged and
// reported to the reload callback; they do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}
		case <-fire:
			_ = w.Reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "path", w.path, "error", err)
		}
	}
}
