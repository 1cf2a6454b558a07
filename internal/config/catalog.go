package config

import (
	"fmt"
	"os"

	"github.com/eventloom/eventloom/internal/event"
)

// Catalog assembles the event catalog from the document's three sources:
// inline events first, then event files, then prefixed groups. Within
// the combined set the first event under a name wins.
func (c *Config) Catalog() (*event.Catalog, error) {
	cat := event.NewCatalog()

	inline, err := event.DecodeEntries(c.events)
	if err != nil {
		return nil, fmt.Errorf("inline events: %w", err)
	}
	cat.Merge(inline)

	for _, file := range c.EventFiles {
		events, err := c.loadEventFile(file)
		if err != nil {
			return nil, err
		}
		cat.Merge(events)
	}

	for _, g := range c.Groups {
		events, err := c.loadEventFile(g.File)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Prefix, err)
		}
		cat.MergeWithPrefix(events, g.Prefix)
	}

	return cat, nil
}

func (c *Config) loadEventFile(file string) ([]*event.Event, error) {
	b, err := os.ReadFile(c.path(file))
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	events, err := event.ParseEntries(b)
	if err != nil {
		return nil, fmt.Errorf("event file %s: %w", file, err)
	}
	return events, nil
}
