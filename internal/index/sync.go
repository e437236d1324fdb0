package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/sidecar"
	"github.com/starford/journal/internal/storage"
)

// SyncStats summarises a Sync pass.
type SyncStats struct {
	Indexed int
	Fresh   int
	Failed  int
	Removed int
}

// Sync walks both roots and brings the sidecars up to date:
//   - notes without a sidecar, or whose content changed, are re-embedded
//   - sidecars whose note no longer exists are removed
func Sync(ctx context.Context, store storage.Provider, ix *Indexer, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	for _, t := range models.EntryTypes {
		notes, err := store.List(ctx, t, time.Time{})
		if err != nil {
			return stats, err
		}
		for _, n := range notes {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if ix.Fresh(n) {
				stats.Fresh++
				continue
			}
			if _, err := ix.Index(ctx, n); err != nil {
				stats.Failed++
				logger.Warn("sync: index failed", slog.String("path", n.Path), slog.String("error", err.Error()))
				continue
			}
			stats.Indexed++
			logger.Debug("sync: indexed", slog.String("path", n.Path))
		}

		stats.Removed += removeOrphans(store.Root(t), ix, logger)
	}

	logger.Info("sync: complete",
		slog.Int("indexed", stats.Indexed),
		slog.Int("fresh", stats.Fresh),
		slog.Int("failed", stats.Failed),
		slog.Int("removed", stats.Removed))
	return stats, nil
}

// removeOrphans deletes sidecars whose note is gone.
func removeOrphans(root string, ix *Indexer, logger *slog.Logger) int {
	removed := 0
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, sidecar.Ext) {
			return nil
		}
		note := strings.TrimSuffix(p, sidecar.Ext) + storage.NoteExt
		if _, statErr := os.Stat(note); statErr == nil {
			return nil
		}
		if rmErr := ix.Forget(note); rmErr != nil {
			logger.Warn("sync: remove orphan failed", slog.String("path", p), slog.String("error", rmErr.Error()))
			return nil
		}
		removed++
		logger.Debug("sync: removed orphan", slog.String("path", p))
		return nil
	})
	return removed
}
