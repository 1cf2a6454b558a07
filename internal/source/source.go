// Package source holds the executors that turn external stimuli into
// events on the main queue: MQTT message arrivals, inbound HTTP
// requests, file-system notifications and input-device scan codes.
//
// Every source walks the catalog (or its pool's subscription set) in
// insertion order and lets the first matching trigger win, then clones
// the trigger's next event, folds the stimulus into its payload and
// enqueues the clone. The stored catalog events are never mutated.
package source

import (
	"strings"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
)

// forward merges the stimulus into a clone of next and enqueues it.
// meta carries the source's annotation on top of the trigger's own
// accumulated metadata.
func forward(queue chan<- *event.Event, next *event.Event, data payload.Data, meta payload.Metadata) {
	flow := next.Clone()
	flow.Payload = flow.Payload.MergeWith(data, flow.MergePolicy)
	flow.Metadata = flow.Metadata.Merge(meta)
	queue <- flow
}

// segments splits a slash-separated path or topic for the metadata tree.
func segments(s string) []any {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
