package bundle

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after a file event before
// reloading, so that editors writing several files trigger one reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadEvent reports the outcome of one reload attempt.
type ReloadEvent struct {
	// ID uniquely identifies the reload attempt.
	ID        string
	Timestamp time.Time

	// Bundle is the newly current bundle, nil when the reload failed.
	Bundle *Bundle

	// Err is set when the reload failed. The watcher keeps serving the
	// previous bundle.
	Err error
}

// Watcher watches a bundle directory and reloads it when files change.
// A failed reload never replaces the current bundle.
type Watcher struct {
	dir     string
	loader  *Loader
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	events  chan ReloadEvent
	stopCh  chan struct{}

	mu            sync.RWMutex
	current       *Bundle
	debounceTimer *time.Timer
	debounce      time.Duration
	watching      bool
	stopped       bool
}

// NewWatcher creates a watcher for the bundle rooted at dir. It does not
// load anything until Start is called.
func NewWatcher(dir string, loader *Loader, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewLoader(logger)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		loader:   loader,
		logger:   logger,
		watcher:  fsw,
		events:   make(chan ReloadEvent, 16),
		stopCh:   make(chan struct{}),
		debounce: DefaultDebounce,
	}, nil
}

// Start loads the bundle once, synchronously, then begins watching the
// directory. It fails without watching when the initial load fails, so a
// started watcher always has a current bundle.
func (w *Watcher) Start() error {
	b, err := w.loader.Load(w.dir)
	if err != nil {
		return fmt.Errorf("initial bundle load: %w", err)
	}

	w.mu.Lock()
	w.current = b
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return fmt.Errorf("watch bundle directory %s: %w", w.dir, err)
	}

	w.logger.Info("Started bundle watcher",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce))

	go w.watchLoop()
	return nil
}

func (w *Watcher) watchLoop() {
	defer func() {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.logger.Debug("Bundle file change detected",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Bundle watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// shouldProcess filters events down to bundle file changes.
func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	switch filepath.Ext(event.Name) {
	case ".cedar", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// scheduleReload arms the debounce timer, collapsing bursts of file events
// into a single reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	event := ReloadEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}

	b, err := w.loader.Load(w.dir)
	if err != nil {
		event.Err = err
		w.logger.Error("Bundle reload failed, keeping previous bundle",
			zap.String("dir", w.dir),
			zap.Error(err))
	} else {
		w.mu.Lock()
		w.current = b
		w.mu.Unlock()
		event.Bundle = b
		w.logger.Info("Bundle reloaded",
			zap.String("name", b.Manifest.Name),
			zap.String("version", b.Manifest.Version),
			zap.Int("policies", b.Policies.Len()))
	}

	w.publish(event)
}

func (w *Watcher) publish(event ReloadEvent) {
	select {
	case w.events <- event:
	case <-w.stopCh:
	default:
		w.logger.Warn("Reload event dropped, channel full",
			zap.String("event_id", event.ID))
	}
}

// Current returns the most recently loaded bundle.
func (w *Watcher) Current() *Bundle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Events delivers one ReloadEvent per reload attempt, successful or not.
// The channel is never closed; select against your own shutdown signal.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

// SetDebounce adjusts the debounce interval. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// IsWatching reports whether the watch loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// Stop halts watching and releases the underlying file watcher. It is safe
// to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	close(w.stopCh)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	return w.watcher.Close()
}
