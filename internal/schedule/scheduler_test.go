package schedule

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
	"github.com/eventloom/eventloom/internal/store"
	"github.com/eventloom/eventloom/internal/timeparse"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func passEvent(name string) *event.Event {
	return &event.Event{Name: name, Kind: event.KindPass, Pass: &event.PassSpec{}}
}

func timeEvent(name, id string, r timeparse.Result, next string) *event.Event {
	return &event.Event{
		Name:      name,
		NextEvent: next,
		Kind:      event.KindTime,
		Time:      &event.TimeSpec{Result: r, EventID: id},
	}
}

func startScheduler(t *testing.T, cat *event.Catalog, st store.Store) (*Scheduler, chan *event.Event) {
	t.Helper()
	queue := make(chan *event.Event, 16)
	s := New(cat, st, queue, testLogger())
	s.tick = 5 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s, queue
}

func expectEvent(t *testing.T, queue chan *event.Event, name string) *event.Event {
	t.Helper()
	select {
	case got := <-queue:
		require.Equal(t, name, got.Name)
		return got
	case <-time.After(2 * time.Second):
		t.Fatalf("no %q event within deadline", name)
		return nil
	}
}

func expectQuiet(t *testing.T, queue chan *event.Event, d time.Duration) {
	t.Helper()
	select {
	case got := <-queue:
		t.Fatalf("unexpected event %q", got.Name)
	case <-time.After(d):
	}
}

func TestFiresDueSchedule(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("announce")))

	now := time.Now()
	ev := timeEvent("wake", "", timeparse.NewDateTime(now, "now"), "announce")
	ev.Payload = payload.NewString("hi")

	s, queue := startScheduler(t, cat, store.Null{})
	s.In() <- ev

	got := expectEvent(t, queue, "announce")
	str, ok := got.Payload.StringValue()
	require.True(t, ok)
	assert.Equal(t, "hi", str)
}

func TestSameEventIDSupersedes(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("stale")))
	require.True(t, cat.Add(passEvent("current")))

	now := time.Now()
	first := timeEvent("first", "door", timeparse.NewDateTime(now, "now"), "stale")
	second := timeEvent("second", "door", timeparse.NewDateTime(now, "now"), "current")

	queue := make(chan *event.Event, 16)
	s := New(cat, store.Null{}, queue, testLogger())
	s.tick = 5 * time.Millisecond

	// Both arrivals land before the first scan, so only the newer
	// schedule for the shared id survives.
	s.In() <- first
	s.In() <- second
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	expectEvent(t, queue, "current")
	expectQuiet(t, queue, 200*time.Millisecond)
}

func TestRepeatReenqueuesItself(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("beat")))

	now := time.Now()
	ev := &event.Event{
		Name:      "pulse",
		NextEvent: "beat",
		Kind:      event.KindRepeat,
		Repeat:    &event.TimeSpec{Result: timeparse.NewDateTime(now, "now")},
	}

	s, queue := startScheduler(t, cat, store.Null{})
	s.In() <- ev

	expectEvent(t, queue, "beat")
	again := expectEvent(t, queue, "pulse")
	assert.Equal(t, event.KindRepeat, again.Kind)
	// The clone is re-armed against the fire time, ready for the next
	// pass through the dispatcher.
	assert.True(t, again.Repeat.Result.WithinExecutionPeriod(time.Now()))
}

func TestCooldownSuppressesRefire(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("rang")))

	queue := make(chan *event.Event, 16)
	s := New(cat, store.Null{}, queue, testLogger())
	s.tick = 5 * time.Millisecond
	s.cooldownFor = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	s.In() <- timeEvent("bell", "bell", timeparse.NewDateTime(time.Now(), "now"), "rang")
	expectEvent(t, queue, "rang")

	// Same id again while cooling: held back until the cooldown lapses.
	s.In() <- timeEvent("bell", "bell", timeparse.NewDateTime(time.Now(), "now"), "rang")
	expectQuiet(t, queue, 60*time.Millisecond)
	expectEvent(t, queue, "rang")
}

func TestFireSpillsWhenQueueIsFull(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("lit")))

	// No reader and no buffer: a blocking send here would hang the
	// scan loop forever.
	queue := make(chan *event.Event)
	s := New(cat, store.Null{}, queue, testLogger())

	now := time.Now()
	ev := timeEvent("lamp", "", timeparse.NewDateTime(now, "now"), "lit")
	ctx := context.Background()
	s.insert(ctx, ev)
	s.fire(ctx, ev.EventID(), now)

	// fire already returned; the spilled hand-off arrives on its own.
	expectEvent(t, queue, "lit")
}

func TestExpiredSchedulePruned(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("never")))

	st, err := store.Open(t.TempDir(), testLogger())
	require.NoError(t, err)

	ev := timeEvent("bygone", "", timeparse.NewDateTime(time.Now().Add(-time.Hour), "2020-01-01 00:00"), "never")

	s, queue := startScheduler(t, cat, st)
	s.In() <- ev

	ctx := context.Background()
	require.Eventually(t, func() bool {
		rec, err := st.Get(ctx, "bygone")
		return err == nil && rec == nil
	}, 2*time.Second, 10*time.Millisecond, "expired schedule should be cleaned out of the store")
	expectQuiet(t, queue, 100*time.Millisecond)
}

func TestFirePersistsAndClears(t *testing.T) {
	cat := event.NewCatalog()
	require.True(t, cat.Add(passEvent("done")))

	st, err := store.Open(t.TempDir(), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	s, queue := startScheduler(t, cat, st)
	s.In() <- timeEvent("job", "job", timeparse.NewDateTime(time.Now().Add(30*time.Second), "in 30s"), "done")

	// Pending means persisted.
	require.Eventually(t, func() bool {
		rec, err := st.Get(ctx, "job")
		return err == nil && rec != nil
	}, 2*time.Second, 10*time.Millisecond)

	// A due schedule under the same id supersedes the far one and fires.
	s.In() <- timeEvent("job", "job", timeparse.NewDateTime(time.Now(), "now"), "done")
	expectEvent(t, queue, "done")
	require.Eventually(t, func() bool {
		rec, err := st.Get(ctx, "job")
		return err == nil && rec == nil
	}, 2*time.Second, 10*time.Millisecond, "fired schedule should leave the store")
}

func TestInsertRejectsUnscheduledEvent(t *testing.T) {
	s := New(event.NewCatalog(), store.Null{}, make(chan *event.Event, 1), testLogger())
	s.insert(context.Background(), passEvent("stray"))
	assert.Empty(t, s.pending)
}

func TestRestoreSeedsFromStore(t *testing.T) {
	log := testLogger()
	st, err := store.Open(t.TempDir(), log)
	require.NoError(t, err)
	ctx := context.Background()

	persisted := timeEvent("lamp", "", timeparse.NewDateTime(time.Now().Add(time.Minute), "in 1 minute"), "glow")
	require.NoError(t, st.Put(ctx, "lamp", persisted))

	cat := event.NewCatalog()
	require.True(t, cat.Add(timeEvent("lamp", "", timeparse.NewDateTime(time.Now(), "in 1 minute"), "glow")))
	require.True(t, cat.Add(timeEvent("cold", "", timeparse.NewDateTime(time.Now(), "in 1 minute"), "glow")))
	require.True(t, cat.Add(passEvent("hello")))

	seed, fresh := Restore(ctx, st, cat, []string{"lamp", "cold", "hello", "ghost"}, log)

	require.Contains(t, seed, "lamp")
	assert.Equal(t, "lamp", seed["lamp"].Name)

	names := make([]string, 0, len(fresh))
	for _, ev := range fresh {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"cold", "hello"}, names)
}

func TestRestoredScheduleKeepsInstant(t *testing.T) {
	log := testLogger()
	st, err := store.Open(t.TempDir(), log)
	require.NoError(t, err)
	ctx := context.Background()

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, st.Put(ctx, "pi", timeEvent("pi", "pi", timeparse.NewDateTime(at, "2026-03-14 09:26:53"), "day")))

	cat := event.NewCatalog()
	require.True(t, cat.Add(timeEvent("pi", "pi", timeparse.NewDateTime(time.Now(), "2026-03-14 09:26:53"), "day")))

	seed, fresh := Restore(ctx, st, cat, []string{"pi"}, log)
	require.Empty(t, fresh)
	require.Contains(t, seed, "pi")

	got, ok := seed["pi"].Time.Result.Instant()
	require.True(t, ok)
	assert.True(t, got.Equal(at), "persisted instant survives the restart")
}
