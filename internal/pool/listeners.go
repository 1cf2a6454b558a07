package pool

import (
	"sync"

	"github.com/eventloom/eventloom/internal/event"
)

// Listeners is one pool's set of active api_listen subscriptions. The
// HTTP source walks it per inbound request; dispatch start/stop mutate
// it. The lock is held only for the matching step or a single mutation.
type Listeners struct {
	mu   sync.Mutex
	list []*event.Event
}

func NewListeners() *Listeners {
	return &Listeners{}
}

// Upsert inserts ev, or replaces the entry with the same name in place so
// re-starting a listener keeps its position.
func (l *Listeners) Upsert(ev *event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cur := range l.list {
		if cur.Name == ev.Name {
			l.list[i] = ev
			return
		}
	}
	l.list = append(l.list, ev)
}

// Remove drops the entry with the given name.
func (l *Listeners) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cur := range l.list {
		if cur.Name == name {
			l.list = append(l.list[:i], l.list[i+1:]...)
			return
		}
	}
}

// Match returns a clone of the first subscription accepting path and
// method. The clone keeps the stored entries out of reach of flow
// mutations.
func (l *Listeners) Match(path, method string) (*event.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.list {
		if ev.ApiListen != nil && ev.ApiListen.Matches(path, method) {
			return ev.Clone(), true
		}
	}
	return nil, false
}

func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.list)
}
