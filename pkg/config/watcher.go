package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-loads path whenever it changes on disk and invokes onChange with
// the newly resolved Config. Parse errors from a bad edit are swallowed
// (onChange simply does not fire for that edit, and nothing logs it) rather
// than tearing down the watch loop — a mid-save truncated file is a transient
// state, not a fatal one. Blocks until ctx is cancelled.
//
// Grounded on NeboLoop-nebo's internal/apps.Watch (fsnotify.NewWatcher,
// watch the containing directory rather than the file itself since editors
// commonly replace-via-rename on save).
func Watch(ctx context.Context, path string, reload func() (Config, error), onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if cfg, err := reload(); err == nil {
				onChange(cfg)
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
