package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the configuration whenever the file at path is written or
// replaced, and passes each successfully reloaded config to apply. It blocks
// until ctx is cancelled. Reload failures are logged and the previous
// configuration stays in effect.
func Watch(ctx context.Context, path string, reload func() (*Config, error), apply func(*Config), logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer w.Close()

	// Editors often replace the file rather than write it in place, which
	// drops a watch on the file itself. Watch the directory instead.
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != target {
				continue
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}
			cfg, err := reload()
			if err != nil {
				logger.Warn("Config reload failed, keeping previous config",
					zap.String("file", target),
					zap.Error(err))
				continue
			}
			logger.Info("Config reloaded", zap.String("file", target))
			apply(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}
