package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 500 * time.Millisecond

// Watcher reloads the configuration when a file in the config directory
// changes. Only settings that are safe to change live are acted on by the
// callbacks: log level and filter debounce.
type Watcher struct {
	loader *Loader
	logger *zap.Logger

	mu        sync.RWMutex
	config    *Config
	callbacks []func(old, updated *Config)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once
}

// NewWatcher starts watching the loader's directory
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(loader.basePath); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.basePath, err)
	}

	w := &Watcher{
		loader:  loader,
		logger:  logger,
		config:  initial,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled",
		zap.String("dir", loader.basePath),
		zap.String("environment", string(initial.Environment)),
	)
	return w, nil
}

// OnChange registers a callback run after every successful reload that
// changed something.
func (w *Watcher) OnChange(callback func(old, updated *Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Config returns the current configuration
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop ends the watch loop
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.stopCh)
	})
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	updated, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Keeping previous configuration", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	if reflect.DeepEqual(stripSources(old), stripSources(updated)) {
		w.mu.Unlock()
		return
	}
	w.config = updated
	callbacks := append([]func(old, updated *Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded", zap.Strings("sources", updated.LoadedFrom))
	for _, cb := range callbacks {
		w.notify(cb, old, updated)
	}
}

func (w *Watcher) notify(cb func(old, updated *Config), old, updated *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration callback panicked", zap.Any("panic", r))
		}
	}()
	cb(old, updated)
}

func stripSources(c *Config) Config {
	out := *c
	out.LoadedFrom = nil
	return out
}

func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".toml", ".json":
		return true
	}
	return false
}
