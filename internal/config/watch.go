package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/REMSofram/plateforme-coach/internal/logging"
)

const reloadDebounce = 100 * time.Millisecond

// ApplyLogLevel reads the overlay at path and sets level from its log_level.
// An empty log_level leaves level unchanged.
func ApplyLogLevel(path string, level *slog.LevelVar) (bool, error) {
	file, err := ReadFile(path)
	if err != nil {
		return false, err
	}
	if file.LogLevel == "" {
		return false, nil
	}
	parsed, err := logging.ParseLevel(file.LogLevel)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", path, err)
	}
	if level.Level() == parsed {
		return false, nil
	}
	level.Set(parsed)
	return true, nil
}

// Watch reloads log_level from the overlay at path whenever the file is
// written, until ctx is done. The parent directory is watched so editors that
// replace the file are picked up.
func Watch(ctx context.Context, path string, level *slog.LevelVar, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	name := filepath.Clean(path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)
		case <-debounce:
			debounce = nil
			changed, err := ApplyLogLevel(path, level)
			if err != nil {
				logger.WarnContext(ctx, "config reload failed", "path", path, "error", err)
				continue
			}
			if changed {
				logger.InfoContext(ctx, "log level reloaded", "path", path, "level", level.Level().String())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "config watcher error", "error", err)
		}
	}
}
