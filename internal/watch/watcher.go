// Package watch regenerates the JSON manifest whenever the YAML manifest
// changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of saves to
// settle before syncing.
const DefaultDebounce = 250 * time.Millisecond

// Syncer regenerates the derived manifest. It is satisfied by
// *reconcile.Reconciler.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Syncs     int
	Errors    int
	LastSync  time.Time
	LastError error
}

// Watcher observes one manifest file. The parent directory is watched so
// that editors replacing the file through a rename are still seen.
type Watcher struct {
	path     string
	syncer   Syncer
	debounce time.Duration
	logger   *log.Logger
	fsw      *fsnotify.Watcher

	mu    sync.Mutex
	stats Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a sync runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New starts watching the directory of path. Events are consumed by Run.
func New(path string, syncer Syncer, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		syncer:   syncer,
		debounce: DefaultDebounce,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run processes events until ctx is cancelled. Sync failures are logged and
// counted; watching continues so the next save can fix them.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Info("Watching for changes", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Watcher stopped", "path", w.path)
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Change detected", "path", event.Name, "op", event.Op.String())
			w.mu.Lock()
			w.stats.Events++
			w.mu.Unlock()
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "err", err)
			w.record(err)

		case <-timer.C:
			w.sync(ctx)
		}
	}
}

// Close releases the underlying watcher without running.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) sync(ctx context.Context) {
	n, err := w.syncer.Sync(ctx)
	if err != nil {
		w.logger.Error("Sync failed", "path", w.path, "err", err)
		w.record(err)
		return
	}

	w.mu.Lock()
	w.stats.Syncs++
	w.stats.LastSync = time.Now()
	w.mu.Unlock()

	if n > 0 {
		w.logger.Info("Synced", "path", w.path, "bytes", n)
	}
}

func (w *Watcher) record(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Errors++
	w.stats.LastError = err
}
