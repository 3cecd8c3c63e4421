package config

import "sync"

// Holder provides thread-safe access to a mutable *Config and an immutable
// config file path. The serve command and the file watcher share one
// Holder, so a reload updates config in exactly one place.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string // immutable after construction
}

// NewHolder creates a Holder with the initial config and config file path.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{
		cfg:  cfg,
		path: path,
	}
}

// Config returns the current config snapshot. Thread-safe (read lock).
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file path.
func (h *Holder) Path() string {
	return h.path
}

// Update replaces the config and returns the previous snapshot.
func (h *Holder) Update(cfg *Config) *Config {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.cfg
	h.cfg = cfg

	return old
}

// RestartRequired lists the sections whose values differ between old and
// next and which only take effect on restart. Logging applies live.
func RestartRequired(old, next *Config) []string {
	var changed []string

	if old.Forge != next.Forge {
		changed = append(changed, "forge")
	}

	if old.Server != next.Server {
		changed = append(changed, "server")
	}

	if old.Session != next.Session {
		changed = append(changed, "session")
	}

	if old.Resolver != next.Resolver {
		changed = append(changed, "resolver")
	}

	if old.Network != next.Network {
		changed = append(changed, "network")
	}

	return changed
}
