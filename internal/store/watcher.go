package store

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change operations reported by Watch.
const (
	OpSet    = "set"
	OpDelete = "delete"
)

// ChangeCallback is called for every record change observed in the
// fallback directory. op is OpSet or OpDelete.
type ChangeCallback func(op string, key string)

// Watch runs an fsnotify watcher over the fallback store directory until
// ctx is cancelled, translating file events back into record keys. This is
// the cross-process change signal: another workstation process writing a
// record shows up here, the same way a foreign browser tab's write fires a
// storage event.
//
// Events for temp files and foreign files are ignored. The writing process
// observes its own renames too; callers that care filter by key or by
// comparing against their in-memory state.
func Watch(ctx context.Context, files *Files, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(files.Dir()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", files.Dir()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, valid := KeyForFile(filepath.Base(ev.Name))
			if !valid {
				continue
			}

			switch {
			// Atomic writes land as a rename onto the record path, but
			// direct writes (foreign processes, tests) arrive as
			// create/write.
			case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0:
				if _, present := files.ReadRaw(key); !present {
					// Rename away from the record path: the key is gone.
					logger.Debug("watcher: record removed", slog.String("key", key))
					cb(OpDelete, key)
					continue
				}
				logger.Debug("watcher: record changed", slog.String("key", key))
				cb(OpSet, key)

			case ev.Op&fsnotify.Remove != 0:
				logger.Debug("watcher: record removed", slog.String("key", key))
				cb(OpDelete, key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
