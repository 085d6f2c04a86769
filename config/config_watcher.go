package config

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Verify at compile time that ConfigWatcher implements Watcher
var _ Watcher = (*ConfigWatcher)(nil)

// ConfigWatcher manages configuration hot reloading. Each reload produces
// a fresh, validated Config value; subscribers receive the new value and
// decide how to apply it (the server restarts itself with it).
type ConfigWatcher struct {
	// Using atomic.Value for thread-safe config access
	currentConfig atomic.Value
	configPath    string
	watcher       *fsnotify.Watcher
	logger        *zap.Logger
	subscribers   []chan<- *Config
}

// NewConfigWatcher creates a new configuration watcher for the given file.
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &ConfigWatcher{
		configPath: configPath,
		watcher:    watcher,
		logger:     logger,
	}

	initialConfig, err := LoadFile(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}
	cw.currentConfig.Store(initialConfig)

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	go cw.watchConfig()
	return cw, nil
}

// Subscribe allows components to receive config updates
func (cw *ConfigWatcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	cw.subscribers = append(cw.subscribers, ch)
	return ch
}

// GetCurrentConfig returns the current configuration thread-safely
func (cw *ConfigWatcher) GetCurrentConfig() *Config {
	return cw.currentConfig.Load().(*Config)
}

func (cw *ConfigWatcher) watchConfig() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				cw.handleConfigChange()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (cw *ConfigWatcher) handleConfigChange() {
	cw.logger.Info("Detected config file change, reloading...")

	newConfig, err := LoadFile(cw.configPath)
	if err != nil {
		// Keep serving with the last good config.
		cw.logger.Error("Failed to load new config", zap.Error(err))
		return
	}

	cw.currentConfig.Store(newConfig)

	for _, ch := range cw.subscribers {
		select {
		case ch <- newConfig:
		default:
			// Subscriber has not drained the previous update; skip.
		}
	}

	cw.logger.Info("Configuration reloaded",
		zap.Int("port", newConfig.Server.Port),
		zap.String("model", newConfig.Gemini.Model),
	)
}

// Close stops watching the config file.
func (cw *ConfigWatcher) Close() error {
	return cw.watcher.Close()
}

// Verify at compile time that staticWatcher implements Watcher
var _ Watcher = (*staticWatcher)(nil)

// staticWatcher serves a single fixed Config. It is used when the service
// runs without a config file, purely from environment defaults.
type staticWatcher struct {
	cfg *Config
}

// NewStatic returns a Watcher that always yields cfg and never updates.
func NewStatic(cfg *Config) Watcher {
	return &staticWatcher{cfg: cfg}
}

func (s *staticWatcher) GetCurrentConfig() *Config { return s.cfg }

func (s *staticWatcher) Subscribe() <-chan *Config {
	// Never delivers; callers select on it alongside shutdown signals.
	return make(chan *Config)
}

func (s *staticWatcher) Close() error { return nil }
