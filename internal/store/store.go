// Package store persists the scheduler's pending events across restarts.
//
// The backing format is one JSON file per event id in a single directory,
// written atomically. That trades throughput for inspectability, which is
// the right trade here: the scheduler holds a handful of pending events,
// not thousands.
package store

import (
	"context"

	"github.com/eventloom/eventloom/internal/event"
)

// Store saves and restores scheduled events keyed by event id. The
// surface is deliberately narrow; the scheduler is the only writer.
type Store interface {
	// Put saves ev under id, replacing any previous record.
	Put(ctx context.Context, id string, ev *event.Event) error
	// Get returns the record under id, nil when absent.
	Get(ctx context.Context, id string) (*event.Event, error)
	// Delete removes the record under id. A missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// Null discards writes and restores nothing. It backs runs with
// restoration disabled so callers need no branching.
type Null struct{}

var _ Store = Null{}

func (Null) Put(context.Context, string, *event.Event) error { return nil }
func (Null) Get(context.Context, string) (*event.Event, error) {
	return nil, nil
}
func (Null) Delete(context.Context, string) error { return nil }
