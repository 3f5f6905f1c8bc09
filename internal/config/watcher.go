package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"remedy/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last file change
// before triggering a reload, so editors that write in several steps do
// not cause reload storms.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher monitors the config directory and invokes OnChange with the
// freshly loaded configuration whenever config.yaml changes.
type Watcher struct {
	configPath string
	onChange   func(Config)

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	debounce  *time.Timer
	stopCh    chan struct{}
	running   bool
}

// NewWatcher creates a watcher for configPath (empty means the default
// config directory).
func NewWatcher(configPath string, onChange func(Config)) *Watcher {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	return &Watcher{
		configPath: configPath,
		onChange:   onChange,
		stopCh:     make(chan struct{}),
	}
}

// Start begins watching. It fails when the directory cannot be watched;
// callers treat that as a degraded mode, not a fatal error.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(w.configPath); err != nil {
		fsWatcher.Close()
		return err
	}

	w.fsWatcher = fsWatcher
	w.running = true
	go w.loop()

	logging.Info("ConfigWatcher", "Watching %s for configuration changes", w.configPath)
	return nil
}

// Stop ends watching and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.fsWatcher.Close()
	w.running = false
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("ConfigWatcher", "Watch error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(DefaultDebounceInterval, func() {
		cfg, err := LoadConfig(w.configPath)
		if err != nil {
			logging.Warn("ConfigWatcher", "Ignoring invalid configuration change: %v", err)
			return
		}
		logging.Info("ConfigWatcher", "Configuration reloaded")
		w.onChange(cfg)
	})
}
