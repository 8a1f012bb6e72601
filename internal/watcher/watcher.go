// Package watcher reloads host settings when the configuration file changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Loader reads the complete host settings from path.
type Loader func(path string) (map[string]any, error)

// Replacer receives a freshly loaded settings set.
type Replacer interface {
	Replace(values map[string]any) (int, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher applies configuration file edits to a Replacer.
type Watcher struct {
	path     string
	load     Loader
	target   Replacer
	logger   *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher for path. Nothing is watched until Start.
func New(path string, load Loader, target Replacer, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		load:     load,
		target:   target,
		logger:   logger,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The containing directory is watched so that editors
// which replace the file on save are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" || w.path == "." {
		return errors.New("watcher: empty path")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return errors.New("watcher: already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.logger.Info("watching config file for changes", zap.String("path", w.path))

	go w.loop(ctx, fsw, w.done)
	return nil
}

// Reload loads the file and hands the result to the target.
func (w *Watcher) Reload() error {
	values, err := w.load(w.path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	changed, err := w.target.Replace(values)
	if err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}
	w.logger.Info("settings reloaded", zap.String("path", w.path), zap.Int("changed", changed))
	return nil
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	w.stopOnce.Do(func() {
		_ = fsw.Close()
	})
	<-done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.stopOnce.Do(func() {
				_ = fsw.Close()
			})
			w.logger.Info("config watcher stopped")
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("config file changed", zap.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.logger.Error("automatic settings reload failed", zap.Error(err))
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))
		}
	}
}
