package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/folio/internal/storage"
)

const resyncDelay = 200 * time.Millisecond

// Watch reacts to file changes under the import folder until ctx is
// cancelled. Writes import the file, removals delete its article, and
// renames or new directories trigger a debounced full Sync.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := im.files.Root()
	if err := watchTree(w, root); err != nil {
		return err
	}
	im.logger.Info("import watcher: started", slog.String("root", root))

	var (
		resync  *time.Timer
		resyncC <-chan time.Time
	)
	scheduleResync := func() {
		if resync == nil {
			resync = time.NewTimer(resyncDelay)
			resyncC = resync.C
			return
		}
		resync.Reset(resyncDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if resync != nil {
				resync.Stop()
			}
			im.logger.Info("import watcher: stopped")
			return nil

		case <-resyncC:
			if _, err := im.Sync(ctx); err != nil {
				im.logger.Warn("import watcher: resync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			im.handle(ctx, w, root, ev, scheduleResync)

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("import watcher: error", slog.String("error", werr.Error()))
		}
	}
}

func (im *Importer) handle(ctx context.Context, w *fsnotify.Watcher, root string, ev fsnotify.Event, resync func()) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := watchTree(w, ev.Name); err != nil {
				im.logger.Warn("import watcher: add dir failed",
					slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			resync()
			return
		}
	}
	if !storage.IsMarkdown(ev.Name) || strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if err := im.importPath(ctx, rel); err != nil {
			im.logger.Warn("import watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		im.logger.Debug("import watcher: imported", slog.String("path", rel))

	case ev.Has(fsnotify.Remove):
		if err := im.writer.DeleteSource(ctx, rel); err != nil {
			im.logger.Warn("import watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		im.logger.Debug("import watcher: removed", slog.String("path", rel))

	case ev.Has(fsnotify.Rename):
		// the new name arrives as a separate Create, if at all
		if err := im.writer.DeleteSource(ctx, rel); err != nil {
			im.logger.Warn("import watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		resync()
	}
}

// watchTree adds dir and all its subdirectories to w.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
