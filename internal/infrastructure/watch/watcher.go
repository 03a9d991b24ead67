package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent is one file system change below the watched root.
type ChangeEvent struct {
	Path       string
	ChangeType string // create, write, remove or rename
}

// Watcher reports changes below a project directory in batches.
type Watcher struct {
	fs      *fsnotify.Watcher
	filter  Filter
	window  time.Duration
	onBatch func([]ChangeEvent)
	logger  *slog.Logger
}

// New watches filter.Root. onBatch runs once changes have settled for
// window; a zero window selects 300ms.
func New(filter Filter, window time.Duration, onBatch func([]ChangeEvent), logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if window <= 0 {
		window = 300 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	watcher := &Watcher{fs: w, filter: filter, window: window, onBatch: onBatch, logger: logger}
	if err := watcher.addTree(filter.Root); err != nil {
		w.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return watcher, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if !w.filter.Allows(path, true) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers batches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	batch := NewBatcher(w.window, func(e ChangeEvent) string { return e.Path }, w.onBatch)
	defer batch.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			change := changeType(event.Op)
			if change == "" {
				continue
			}
			isDir := false
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					isDir = true
					if w.filter.Allows(event.Name, true) {
						if err := w.addTree(event.Name); err != nil {
							w.logger.Warn("watch new directory", "path", event.Name, "error", err)
						}
					}
				}
			}
			if !w.filter.Allows(event.Name, isDir) {
				continue
			}
			batch.Add(ChangeEvent{Path: event.Name, ChangeType: change})

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func changeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}

// Touches reports whether any change in batch concerns path.
func Touches(batch []ChangeEvent, path string) bool {
	for _, e := range batch {
		if filepath.Clean(e.Path) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
