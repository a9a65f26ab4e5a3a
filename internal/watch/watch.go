// Package watch re-runs a callback when Python sources under a directory
// change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phobologic/sherpa/internal/discover"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches every walked directory of a repository.
type Watcher struct {
	root     string
	filter   discover.Filter
	debounce time.Duration
	onChange func(context.Context) error
	logger   *slog.Logger

	fsw   *fsnotify.Watcher
	mu    sync.Mutex
	timer *time.Timer
}

// Options configures a Watcher.
type Options struct {
	Filter   discover.Filter
	Debounce time.Duration
	Logger   *slog.Logger
}

// New creates a Watcher for root. onChange runs after each settled burst of
// source changes; calls never overlap.
func New(root string, onChange func(context.Context) error, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		root:     root,
		filter:   opts.Filter,
		debounce: opts.Debounce,
		onChange: onChange,
		logger:   opts.Logger,
		fsw:      fsw,
	}, nil
}

// Run adds watches and processes events until ctx is done. It returns nil on
// cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("adding watches: %w", err)
	}

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.filter.SkipDir(filepath.Base(event.Name)) {
						w.logger.Debug("watching new directory", "path", event.Name)
						if err := w.addRecursive(event.Name); err != nil {
							w.logger.Warn("adding watch", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if !Relevant(event) {
				continue
			}
			w.logger.Debug("file event", "op", event.Op.String(), "path", event.Name)
			w.schedule(fire)

		case <-fire:
			w.logger.Debug("changes settled, re-running")
			if err := w.onChange(ctx); err != nil {
				w.logger.Error("re-run failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// schedule restarts the debounce timer. When it expires a token is sent on
// fire unless one is already pending.
func (w *Watcher) schedule(fire chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.filter.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Relevant reports whether an event can change the analysis: a Python file
// created, written, removed or renamed.
func Relevant(event fsnotify.Event) bool {
	if !discover.IsSource(filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
