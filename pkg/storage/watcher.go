package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a FileStore's backing file and notifies when another
// process rewrites it (e.g. a sibling CLI refreshing the token). The
// session manager uses this to adopt externally refreshed credentials
// instead of triggering a redundant refresh of its own.
type Watcher struct {
	path    string
	onEvent func()
	done    chan struct{}
	logger  *slog.Logger

	stopOnce sync.Once

	// Debounce settings to avoid repeated callbacks per rename cycle.
	debounce time.Duration
	fireMu   sync.Mutex
	lastFire time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithWatchDebounce sets the debounce duration.
func WithWatchDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the store's backing file. onChange is
// invoked (debounced) after every external write.
func NewWatcher(store *FileStore, onChange func(), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     store.Path(),
		onEvent:  onChange,
		done:     make(chan struct{}),
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start blocks, watching until Stop is called.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage: create watcher: %w", err)
	}

	// Watch the directory rather than the file: atomic rename replaces
	// the inode the file watch would be bound to.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("storage: watch %s: %w", dir, err)
	}

	w.logger.Debug("credential watcher started", "path", w.path)
	base := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.fire()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("credential watcher error", "error", err, "path", w.path)

		case <-w.done:
			return watcher.Close()
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("credential watcher stopped with error", "error", err)
		}
	}()
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// fire invokes the callback with debouncing.
func (w *Watcher) fire() {
	w.fireMu.Lock()
	defer w.fireMu.Unlock()

	now := time.Now()
	if now.Sub(w.lastFire) < w.debounce {
		return
	}
	w.lastFire = now

	if w.onEvent != nil {
		w.onEvent()
	}
}
