package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
)

func changedEvent(name, path string, when event.WatchKind) *event.Event {
	return &event.Event{
		Name:        name,
		Kind:        event.KindFileChanged,
		FileChanged: &event.FileChangedSpec{Path: path, When: when},
	}
}

func newTestWatcher(t *testing.T, cat *event.Catalog) (*FileWatcher, chan *event.Event) {
	t.Helper()
	q := make(chan *event.Event, 4)
	w, err := NewFileWatcher(cat, q, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, q
}

func TestWatchKindMapping(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want event.WatchKind
		ok   bool
	}{
		{"create", fsnotify.Create, event.WatchCreated, true},
		{"write", fsnotify.Write, event.WatchWritten, true},
		{"remove", fsnotify.Remove, event.WatchRemoved, true},
		{"rename counts as removed", fsnotify.Rename, event.WatchRemoved, true},
		{"chmod ignored", fsnotify.Chmod, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := watchKind(tt.op)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNotificationForwardsMatchingNext(t *testing.T) {
	cat := event.NewCatalog()
	fc := changedEvent("changed", "/tmp/f.txt", event.WatchWritten)
	fc.NextEvent = "sink"
	fc.Payload = payload.NewString("touched")
	require.True(t, cat.Add(fc))
	require.True(t, cat.Add(passEvent("sink")))

	w, q := newTestWatcher(t, cat)
	w.handle(fsnotify.Event{Name: "/tmp/f.txt", Op: fsnotify.Write})

	got := takeQueued(t, q)
	assert.Equal(t, "sink", got.Name)
	s, ok := got.Payload.StringValue()
	require.True(t, ok)
	assert.Equal(t, "touched", s)
	assert.Equal(t, map[string]any{"path": "/tmp/f.txt", "op": "written"}, got.Metadata["changed"])
}

func TestNotificationKindMustMatch(t *testing.T) {
	cat := event.NewCatalog()
	fc := changedEvent("changed", "/tmp/f.txt", event.WatchRemoved)
	fc.NextEvent = "sink"
	require.True(t, cat.Add(fc))
	require.True(t, cat.Add(passEvent("sink")))

	w, q := newTestWatcher(t, cat)
	w.handle(fsnotify.Event{Name: "/tmp/f.txt", Op: fsnotify.Write})
	assert.Empty(t, q)
}

func TestWatchAndUnwatchRealDirectory(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWatcher(t, event.NewCatalog())

	require.NoError(t, w.Watch(dir, false))
	require.NoError(t, w.Unwatch(dir))
	assert.Error(t, w.Watch(filepath.Join(dir, "missing"), false))
}

func TestRecursiveWatchCoversSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	w, _ := newTestWatcher(t, event.NewCatalog())
	require.NoError(t, w.Watch(dir, true))

	assert.Contains(t, w.fs.WatchList(), sub)
}
