package mocks

import (
	"sync/atomic"

	"github.com/localmind-ai/localmind/config"
)

// ConfigWatcher provides a testable implementation of config.Watcher
type ConfigWatcher struct {
	currentConfig atomic.Value
	subscribers   []chan *config.Config
}

// Verify at compile time that ConfigWatcher implements config.Watcher
var _ config.Watcher = (*ConfigWatcher)(nil)

// NewConfigWatcher creates a new ConfigWatcher initialized with the
// provided config
func NewConfigWatcher(cfg *config.Config) *ConfigWatcher {
	cw := &ConfigWatcher{
		subscribers: make([]chan *config.Config, 0),
	}
	cw.currentConfig.Store(cfg)
	return cw
}

// GetCurrentConfig implements config.Watcher
func (m *ConfigWatcher) GetCurrentConfig() *config.Config {
	return m.currentConfig.Load().(*config.Config)
}

// Subscribe implements config.Watcher
func (m *ConfigWatcher) Subscribe() <-chan *config.Config {
	ch := make(chan *config.Config, 1)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Close implements config.Watcher
func (m *ConfigWatcher) Close() error {
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
	return nil
}

// UpdateConfig is a test helper that simulates configuration changes
func (m *ConfigWatcher) UpdateConfig(cfg *config.Config) {
	m.currentConfig.Store(cfg)

	for _, ch := range m.subscribers {
		select {
		case ch <- cfg:
		default:
			// Skip if channel is blocked
		}
	}
}
