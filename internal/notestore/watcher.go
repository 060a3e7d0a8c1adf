package notestore

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ehwaz/internal/models"
)

// ApplyFunc receives one debounced vault change. kind is "created",
// "updated", or "deleted"; note is nil for deletions.
type ApplyFunc func(kind, id string, note *models.Note)

// Watch starts an fsnotify watcher on the vault root and delivers debounced
// per-file changes until ctx is cancelled. Edits arriving within the
// debounce window for the same path are coalesced, so a burst of editor
// writes reaches the engine as a single update (the engine's supersession
// contract assumes this).
//
// New directories created at runtime are added to the watch list. A rename
// surfaces as a delete of the old path followed by a create of the new one;
// the note id survives because it lives in the frontmatter.
func Watch(ctx context.Context, store *FS, debounce time.Duration, logger *slog.Logger, apply ApplyFunc) error {
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, store.Root()); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", store.Root()))

	pending := make(map[string]fsnotify.Op)
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			batch := pending
			pending = make(map[string]fsnotify.Op)
			flush(store, batch, logger, apply)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(store.Root(), ev.Name)
			if relErr != nil {
				continue
			}
			pending[rel] |= ev.Op
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush applies one debounced batch. Each path collapses to a single
// terminal action: gone from disk means removal, otherwise reindex.
func flush(store *FS, batch map[string]fsnotify.Op, logger *slog.Logger, apply ApplyFunc) {
	for rel, op := range batch {
		note, err := store.LoadPath(rel)
		if err != nil {
			// File no longer exists: removal (covers Remove and the old
			// path of a Rename).
			if id, ok := store.IDForPath(rel); ok {
				apply("deleted", id, nil)
				store.forgetPath(rel)
				logger.Debug("watcher: removed", slog.String("path", rel))
			}
			continue
		}

		kind := "updated"
		if op&fsnotify.Create != 0 {
			if _, known := store.IDForPath(rel); !known {
				kind = "created"
			}
		}
		store.rememberPath(note.ID, rel)
		apply(kind, note.ID, note)
		logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	}
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
