package graph

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// LogWatcher observes a store's event log file for out-of-process writes
// (e.g. another server instance sharing the same store root) and flags the
// in-memory state as stale. Only Open compares the index's recorded line
// count against the log's actual line count; mutations do not check for
// external appends, and the read paths fold them in only once this watcher
// has flagged the log as stale.
type LogWatcher struct {
	path    string
	fw      *fsnotify.Watcher
	cancel  context.CancelFunc
	once    sync.Once
	stale   atomic.Bool
}

// WatchLog starts watching path for external writes. The caller owns the
// returned watcher's lifetime and must call Stop when done.
func WatchLog(parentCtx context.Context, path string) (*LogWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(parentCtx)
	w := &LogWatcher{path: path, fw: fw, cancel: cancel}
	go w.run(ctx)
	return w, nil
}

func (w *LogWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.stale.Store(true)
				slog.Debug("event log changed externally", "path", w.path)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("log watcher error", "path", w.path, "error", err)
		}
	}
}

// Stale reports whether an external write was observed since the last
// Acknowledge call.
func (w *LogWatcher) Stale() bool {
	return w.stale.Load()
}

// Acknowledge clears the stale flag after the caller has reconciled state
// (Store.refreshIfStale calls it after folding in the log tail).
func (w *LogWatcher) Acknowledge() {
	w.stale.Store(false)
}

// Stop stops the watcher (idempotent).
func (w *LogWatcher) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		_ = w.fw.Close()
	})
}
