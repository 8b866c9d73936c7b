package toml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the full record list every time the records file is
// replaced or written, until ctx is done. The parent directory is watched
// because saves swap the file in by rename.
func (r *Repository) Watch(ctx context.Context, fn func([]domain.CustomerRecord)) error {
	dir := filepath.Dir(r.recordsPath)
	if err := os.MkdirAll(dir, recordsDirMode); err != nil {
		return fmt.Errorf("create records directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create records watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch records directory: %w", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.recordsPath {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			r.mu.RLock()
			records, err := r.listLocked()
			r.mu.RUnlock()
			if err != nil {
				// Partially written by an external editor; the next event carries the rest.
				continue
			}
			fn(records)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch records file: %w", err)

		case <-ctx.Done():
			return nil
		}
	}
}
