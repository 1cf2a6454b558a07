package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
)

// FileWatcher is the shared file-system watcher. Watch events drive its
// Watch/Unwatch surface through the dispatcher; notifications flow back
// out as the matching file_changed event's next.
type FileWatcher struct {
	catalog *event.Catalog
	queue   chan<- *event.Event
	log     *slog.Logger
	fs      *fsnotify.Watcher

	mu sync.Mutex
	// recursive roots get new subdirectories added as they appear.
	recursive map[string]bool
}

func NewFileWatcher(catalog *event.Catalog, queue chan<- *event.Event, log *slog.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &FileWatcher{
		catalog:   catalog,
		queue:     queue,
		log:       log,
		fs:        fsw,
		recursive: make(map[string]bool),
	}, nil
}

// Watch adds path; with recursive set, every directory below it too.
func (w *FileWatcher) Watch(path string, recursive bool) error {
	if err := w.fs.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if !recursive {
		return nil
	}
	w.mu.Lock()
	w.recursive[path] = true
	w.mu.Unlock()
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == path {
			return err
		}
		if err := w.fs.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Unwatch removes path and forgets its recursive root marker. Watches on
// subdirectories lapse when their directories go away.
func (w *FileWatcher) Unwatch(path string) error {
	w.mu.Lock()
	delete(w.recursive, path)
	w.mu.Unlock()
	if err := w.fs.Remove(path); err != nil {
		return fmt.Errorf("unwatch %s: %w", path, err)
	}
	return nil
}

func (w *FileWatcher) Close() error { return w.fs.Close() }

// Run consumes notifications until ctx is cancelled.
func (w *FileWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *FileWatcher) handle(n fsnotify.Event) {
	kind, ok := watchKind(n.Op)
	if !ok {
		return
	}
	if kind == event.WatchCreated {
		w.maybeDescend(n.Name)
	}

	match := w.match(n.Name, kind)
	if match == nil {
		w.log.Debug("no file_changed for notification", "path", n.Name, "kind", string(kind))
		return
	}
	next, ok := w.catalog.ResolveNext(match)
	if !ok {
		w.log.Warn("file_changed has no next event", "event", match.Name, "path", n.Name)
		return
	}
	meta := match.Metadata.Merge(payload.Metadata{match.Name: map[string]any{
		"path": n.Name,
		"op":   string(kind),
	}})
	w.log.Debug("notification matched", "event", match.Name, "path", n.Name, "next", next.Name)
	forward(w.queue, next, match.Payload, meta)
}

func (w *FileWatcher) match(path string, kind event.WatchKind) *event.Event {
	for _, ev := range w.catalog.All() {
		if ev.Kind == event.KindFileChanged && ev.FileChanged.Matches(path, kind) {
			return ev
		}
	}
	return nil
}

// maybeDescend starts watching a directory created under a recursive
// root.
func (w *FileWatcher) maybeDescend(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for root := range w.recursive {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			if err := w.fs.Add(path); err != nil {
				w.log.Warn("watching new directory failed", "path", path, "error", err)
			}
			return
		}
	}
}

// watchKind maps raw notification ops onto the three matchable kinds.
// Renames count as removals; the path no longer exists under that name.
func watchKind(op fsnotify.Op) (event.WatchKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return event.WatchCreated, true
	case op.Has(fsnotify.Write):
		return event.WatchWritten, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return event.WatchRemoved, true
	default:
		return "", false
	}
}
