package event

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// GeneratedPrefix names the synthetic pass events that carry a rendered
// next-event template through dispatch.
const GeneratedPrefix = "generated_from_"

// Catalog is the insertion-ordered set of events keyed by unique name.
// It is built once at load time and read-only afterwards, so lookups and
// iteration need no locking.
type Catalog struct {
	index map[string]int
	list  []*Event
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Add appends ev unless the name is already present. Set semantics: the
// first event under a name wins, matching the loader's merge behavior.
func (c *Catalog) Add(ev *Event) bool {
	if _, ok := c.index[ev.Name]; ok {
		return false
	}
	c.index[ev.Name] = len(c.list)
	c.list = append(c.list, ev)
	return true
}

// Get returns the catalog's event under name. Callers clone before
// mutating; the stored event is the shared template.
func (c *Catalog) Get(name string) (*Event, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.list[i], true
}

// Has reports whether name is present.
func (c *Catalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// EventIDOf returns the scheduling identity of the named event.
func (c *Catalog) EventIDOf(name string) (string, bool) {
	ev, ok := c.Get(name)
	if !ok {
		return "", false
	}
	return ev.EventID(), true
}

// Len returns the number of events.
func (c *Catalog) Len() int { return len(c.list) }

// All returns the events in insertion order. The slice is the catalog's
// own; treat it as read-only.
func (c *Catalog) All() []*Event { return c.list }

// ResolveNext resolves ev's outgoing transition. A literal name looks up
// the catalog; a template yields a synthetic pass event that carries the
// template forward so the dispatcher renders it with the merged context.
func (c *Catalog) ResolveNext(ev *Event) (*Event, bool) {
	if ev.NextEvent != "" {
		return c.Get(ev.NextEvent)
	}
	if ev.NextTemplate != "" {
		gen := &Event{
			Name:         GeneratedPrefix + ev.Name,
			Kind:         KindPass,
			Pass:         &PassSpec{},
			NextTemplate: ev.NextTemplate,
		}
		return gen, true
	}
	return nil, false
}

// Merge adds events in order, keeping existing entries on name collisions.
func (c *Catalog) Merge(events []*Event) {
	for _, ev := range events {
		c.Add(ev)
	}
}

// MergeWithPrefix rewrites every event name and symbolic next to
// "<prefix>_<original>" and adds the results. Templates are left alone;
// they resolve at render time.
func (c *Catalog) MergeWithPrefix(events []*Event, prefix string) {
	for _, ev := range events {
		ev.Name = prefix + "_" + ev.Name
		if ev.NextEvent != "" {
			ev.NextEvent = prefix + "_" + ev.NextEvent
		}
		c.Add(ev)
	}
}

// DecodeEntries decodes an ordered name→event mapping node. The map key
// becomes the event name unless the entry sets one explicitly.
func DecodeEntries(node *yaml.Node) ([]*Event, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, nil
		}
		node = node.Content[0]
	}
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("events must be a mapping of name to event")
	}
	out := make([]*Event, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var ev Event
		if err := node.Content[i+1].Decode(&ev); err != nil {
			return nil, fmt.Errorf("event %q: %w", key, err)
		}
		if ev.Name == "" {
			ev.Name = key
		}
		out = append(out, &ev)
	}
	return out, nil
}

// ParseEntries decodes a standalone event-file document.
func ParseEntries(b []byte) ([]*Event, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	return DecodeEntries(&doc)
}
