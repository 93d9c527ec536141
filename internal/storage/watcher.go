package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change kinds reported by Watch.
const (
	ChangeWritten = "written"
	ChangeRemoved = "removed"
)

// settleDelay coalesces the burst of events one atomic write produces.
const settleDelay = 150 * time.Millisecond

// EventCallback is called once per settled change of a session document.
type EventCallback func(kind, sessionID string)

// Watch watches the top level of root for session document changes until
// ctx is cancelled, reporting each settled change through cb. Temp files
// and the trash directory are ignored.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]string)
	var settle *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(settleDelay)
			settleCh = settle.C
			return
		}
		if !settle.Stop() {
			select {
			case <-settle.C:
			default:
			}
		}
		settle.Reset(settleDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for id, kind := range pending {
				logger.Debug("watcher: session changed", slog.String("id", id), slog.String("op", kind))
				if cb != nil {
					cb(kind, id)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			id, ok := SessionID(rel)
			if !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[id] = ChangeWritten
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				pending[id] = ChangeRemoved
			default:
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
