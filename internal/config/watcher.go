package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked after a successful reload
type ChangeCallback func(oldConfig, newConfig *Config) error

// Watcher reloads a config file when it changes on disk.
//
// The parent directory is watched rather than the file itself so editors that
// save by rename keep triggering events. Bursts of events are collapsed into a
// single reload after ReloadDelay.
type Watcher struct {
	configPath string
	watcher    *fsnotify.Watcher

	mu        sync.RWMutex
	config    *Config
	callbacks []ChangeCallback

	// ReloadDelay debounces bursts of file events
	ReloadDelay time.Duration
	// ErrorHandler receives reload and watch errors; nil discards them
	ErrorHandler func(error)

	done chan struct{}
}

// NewWatcher creates a watcher for configPath seeded with the current config
func NewWatcher(configPath string, current *Config) (*Watcher, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is empty")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		configPath:  filepath.Clean(configPath),
		watcher:     w,
		config:      current,
		ReloadDelay: 500 * time.Millisecond,
		done:        make(chan struct{}),
	}, nil
}

// AddCallback registers a change callback
func (w *Watcher) AddCallback(cb ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Config returns the most recently loaded configuration
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start begins watching until ctx is cancelled or Close is called
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}
	go w.loop(ctx)
	return nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
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
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.ReloadDelay)
			} else {
				timer.Reset(w.ReloadDelay)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.report(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(fmt.Errorf("config watcher: %w", err))
		}
	}
}

// Reload reads the file again and runs every callback with the old and new
// configuration. The new configuration is kept only if all callbacks succeed.
func (w *Watcher) Reload() error {
	next, err := NewLoader(w.configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	w.mu.RLock()
	prev := w.config
	callbacks := append([]ChangeCallback(nil), w.callbacks...)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(prev, next); err != nil {
			return fmt.Errorf("config change callback failed: %w", err)
		}
	}

	w.mu.Lock()
	w.config = next
	w.mu.Unlock()
	return nil
}

func (w *Watcher) report(err error) {
	if w.ErrorHandler != nil {
		w.ErrorHandler(err)
	}
}
