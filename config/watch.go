package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/opc-classic/errors"
)

// DefaultDebounce is the quiet period Watch waits after the last change
// before reloading.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
}

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) { c.debounce = d }
}

// Watch reloads the file at path whenever it changes and passes every
// valid configuration to fn. Invalid files are logged and skipped. The
// parent directory is watched so editors that replace the file by rename
// are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config), opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, o := range opts {
		o(&cfg)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "resolve config path")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindForeign, err, "create watcher")
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindForeign, err, "watch config directory")
	}

	log := Logger().With(zap.String("path", abs))
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cfg.debounce)
			} else {
				timer.Reset(cfg.debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			c, err := Load(abs)
			if err != nil {
				log.Warn("config reload failed", zap.Error(err))
				continue
			}
			log.Info("config reloaded")
			fn(c)
		}
	}
}
