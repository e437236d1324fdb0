package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/journal/internal/storage"
)

// Watcher event kinds passed to EventCallback.
const (
	EventIndexed = "indexed"
	EventRemoved = "removed"
)

// EventCallback is called after a watcher-driven sidecar change.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on both journal roots and keeps sidecars
// current until ctx is cancelled. Notes created or written are re-embedded
// unless their sidecar already matches; removed or renamed notes lose their
// sidecar.
//
// New day-directories created at runtime are added to the watch list. Rename
// events trigger a debounced Sync to pick up the new location.
func Watch(ctx context.Context, store storage.Provider, ix *Indexer, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range store.Roots() {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return err
		}
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Any("roots", store.Roots()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, err := Sync(ctx, store, ix, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, path); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", path))
					}
					indexNewDir(ctx, store, ix, path, logger, cb)
					continue
				}
			}

			if !strings.HasSuffix(path, storage.NoteExt) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				indexPath(ctx, store, ix, path, logger, cb)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if err := ix.Forget(path); err != nil {
					logger.Warn("watcher: forget failed", slog.String("path", path), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", path))
				if cb != nil {
					cb(EventRemoved, path)
				}
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexPath embeds the note at path unless its sidecar is already current.
func indexPath(ctx context.Context, store storage.Provider, ix *Indexer, path string, logger *slog.Logger, cb EventCallback) {
	note, err := store.Get(path)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if ix.Fresh(note) {
		return
	}
	if _, err := ix.Index(ctx, note); err != nil {
		logger.Warn("watcher: index failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("path", path))
	if cb != nil {
		cb(EventIndexed, path)
	}
}

// indexNewDir indexes any notes already present in a newly created directory.
func indexNewDir(ctx context.Context, store storage.Provider, ix *Indexer, dir string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, storage.NoteExt) {
			return nil
		}
		indexPath(ctx, store, ix, p, logger, cb)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
