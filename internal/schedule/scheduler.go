// Package schedule holds pending time and repeat events and fires them
// when their parsed schedule matches the clock.
//
// Arrivals are keyed by event id: a newer schedule for the same id
// replaces the pending one (last writer wins). Every pending event is
// persisted before insertion so a restart can pick the schedule back up.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/store"
	"github.com/eventloom/eventloom/internal/timeparse"
)

const (
	// idleTick bounds how long the scheduler sleeps between scans.
	idleTick = 100 * time.Millisecond
	inBuffer = 64
)

// Scheduler owns the pending set. It is the only writer of the store.
type Scheduler struct {
	in      chan *event.Event
	queue   chan<- *event.Event
	catalog *event.Catalog
	store   store.Store
	log     *slog.Logger

	pending  map[string]*event.Event
	order    []string
	cooldown map[string]time.Time

	// test seams
	now         func() time.Time
	tick        time.Duration
	cooldownFor time.Duration
}

// New builds a scheduler that fires resolved events onto queue.
func New(catalog *event.Catalog, st store.Store, queue chan<- *event.Event, log *slog.Logger) *Scheduler {
	return &Scheduler{
		in:          make(chan *event.Event, inBuffer),
		queue:       queue,
		catalog:     catalog,
		store:       st,
		log:         log,
		pending:     make(map[string]*event.Event),
		cooldown:    make(map[string]time.Time),
		now:         time.Now,
		tick:        idleTick,
		cooldownFor: timeparse.Cooldown,
	}
}

// In is the hand-off channel the dispatcher sends time and repeat events
// to.
func (s *Scheduler) In() chan<- *event.Event { return s.in }

// Seed pre-loads restored pending events. Call before Run.
func (s *Scheduler) Seed(pending map[string]*event.Event) {
	for id, ev := range pending {
		if _, ok := s.pending[id]; !ok {
			s.order = append(s.order, id)
		}
		s.pending[id] = ev
		s.log.Info("restored pending schedule", "event", ev.Name, "id", id)
	}
}

// Run drives the scan loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.drain(ctx)
		s.evictCooldowns()

		now := s.now()
		fired := 0
		for _, id := range s.readyIDs(now) {
			s.fire(ctx, id, now)
			fired++
		}
		if fired == 0 {
			s.pruneExpired(ctx, now)
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.in:
			if !ok {
				return nil
			}
			s.insert(ctx, ev)
		case <-time.After(s.tick):
		}
	}
}

// drain consumes every queued arrival without blocking.
func (s *Scheduler) drain(ctx context.Context) {
	for {
		select {
		case ev, ok := <-s.in:
			if !ok {
				return
			}
			s.insert(ctx, ev)
		default:
			return
		}
	}
}

// insert persists the event and adds it to pending, superseding any
// earlier entry with the same event id.
func (s *Scheduler) insert(ctx context.Context, ev *event.Event) {
	spec := ev.TimeSpec()
	if spec == nil {
		s.log.Warn("scheduler received event without a schedule", "event", ev.Name)
		return
	}
	id := ev.EventID()
	if err := s.store.Put(ctx, id, ev); err != nil {
		s.log.Error("persisting schedule failed", "event", ev.Name, "id", id, "error", err)
	}
	if _, ok := s.pending[id]; !ok {
		s.order = append(s.order, id)
	} else {
		s.log.Debug("superseding pending schedule", "id", id)
	}
	s.pending[id] = ev
}

func (s *Scheduler) evictCooldowns() {
	now := s.now()
	for id, at := range s.cooldown {
		if now.Sub(at) > s.cooldownFor {
			delete(s.cooldown, id)
		}
	}
}

// readyIDs returns the pending ids due at now, in insertion order.
func (s *Scheduler) readyIDs(now time.Time) []string {
	var ready []string
	for _, id := range s.order {
		if _, cooling := s.cooldown[id]; cooling {
			continue
		}
		ev := s.pending[id]
		if ev.TimeSpec().Result.WithinExecutionPeriod(now) {
			ready = append(ready, id)
		}
	}
	return ready
}

// fire removes the entry, records the cooldown and pushes the resolved
// next event onto the main queue. Repeat events additionally re-enqueue a
// reset clone of themselves so the dispatcher sends them back here for
// the next occurrence.
func (s *Scheduler) fire(ctx context.Context, id string, now time.Time) {
	ev := s.pending[id]
	s.remove(ctx, id)
	s.cooldown[id] = now

	s.log.Info("schedule fired", "event", ev.Name, "id", id)

	if next, ok := s.catalog.ResolveNext(ev); ok {
		flow := next.Clone()
		flow.Payload = flow.Payload.MergeWith(ev.Payload, flow.MergePolicy)
		flow.Metadata = flow.Metadata.Merge(ev.Metadata)
		s.send(flow)
	} else if ev.HasNext() {
		s.log.Warn("next event not found", "event", ev.Name, "next", ev.NextEvent)
	}

	if ev.Kind == event.KindRepeat {
		again := ev.Clone()
		if err := again.Repeat.Reset(now); err != nil {
			s.log.Error("re-arming repeat failed", "event", ev.Name, "error", err)
			return
		}
		s.send(again)
	}
}

// send never blocks the scan loop. The dispatcher can block sending to
// In while the loop holds a fired event, so a full main queue spills the
// hand-off to a goroutine instead of deadlocking the pair.
func (s *Scheduler) send(ev *event.Event) {
	select {
	case s.queue <- ev:
	default:
		go func() { s.queue <- ev }()
	}
}

// pruneExpired drops entries whose instant is too far gone to ever
// match. Time-of-day schedules never expire.
func (s *Scheduler) pruneExpired(ctx context.Context, now time.Time) {
	for _, id := range append([]string(nil), s.order...) {
		ev := s.pending[id]
		if ev.TimeSpec().Result.Expired(now) {
			s.log.Info("pruning expired schedule", "event", ev.Name, "id", id)
			s.remove(ctx, id)
		}
	}
}

func (s *Scheduler) remove(ctx context.Context, id string) {
	delete(s.pending, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Error("removing persisted schedule failed", "id", id, "error", err)
	}
}
