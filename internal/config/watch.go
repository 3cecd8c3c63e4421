package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk. The parent
// directory is watched rather than the file so that editors which replace
// the file by rename are still observed.
type Watcher struct {
	holder   *Holder
	reload   func(path string) (*Config, error)
	onChange func(old, next *Config)
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a Watcher for holder's path. reload produces the new
// effective config (file plus overrides); onChange runs after a valid
// reload has been stored in holder.
func NewWatcher(
	holder *Holder, reload func(path string) (*Config, error),
	onChange func(old, next *Config), logger *slog.Logger,
) *Watcher {
	return &Watcher{
		holder:   holder,
		reload:   reload,
		onChange: onChange,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// Run watches until ctx is canceled. An invalid file on disk is logged and
// the previous config stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	path := w.holder.Path()
	if path == "" {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	w.logger.Debug("watching config file", slog.String("path", path))

	base := filepath.Base(path)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) != base || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

			timerC = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("config watcher error", slog.String("error", err.Error()))

		case <-timerC:
			timerC = nil
			w.apply(path)
		}
	}
}

func (w *Watcher) apply(path string) {
	next, err := w.reload(path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	old := w.holder.Update(next)

	w.logger.Info("config reloaded", slog.String("path", path))

	if sections := RestartRequired(old, next); len(sections) > 0 {
		w.logger.Warn("changed settings take effect after restart",
			slog.Any("sections", sections))
	}

	if w.onChange != nil {
		w.onChange(old, next)
	}
}
