package schedule

import (
	"context"
	"log/slog"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/store"
)

// Restore checks the store for a persisted schedule of every start
// event. Events found there are returned as the seed for the pending
// set; the rest are returned as fresh clones to put on the main queue.
//
// Only events carrying a schedule can have been persisted, so anything
// else in startWith always comes back fresh.
func Restore(ctx context.Context, st store.Store, catalog *event.Catalog, startWith []string, log *slog.Logger) (map[string]*event.Event, []*event.Event) {
	seed := make(map[string]*event.Event)
	var fresh []*event.Event

	for _, name := range startWith {
		ev, ok := catalog.Get(name)
		if !ok {
			log.Warn("start event not found", "event", name)
			continue
		}
		if ev.TimeSpec() == nil {
			fresh = append(fresh, ev.Clone())
			continue
		}
		rec, err := st.Get(ctx, ev.EventID())
		if err != nil {
			log.Error("reading persisted schedule failed", "event", name, "error", err)
		}
		if rec != nil {
			seed[rec.EventID()] = rec
			continue
		}
		fresh = append(fresh, ev.Clone())
	}
	return seed, fresh
}
