package source

import (
	"log/slog"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
)

// Mqtt routes broker message arrivals onto the main queue. One instance
// serves every pool; its HandleMessage is the handler the dispatcher
// registers when an mqtt_subscribe event fires.
type Mqtt struct {
	catalog *event.Catalog
	queue   chan<- *event.Event
	log     *slog.Logger
}

func NewMqtt(catalog *event.Catalog, queue chan<- *event.Event, log *slog.Logger) *Mqtt {
	return &Mqtt{catalog: catalog, queue: queue, log: log}
}

// HandleMessage matches one arrival against the catalog's subscriptions,
// first-wins in catalog order, and forwards the subscription's next
// event with the decoded body merged in.
func (m *Mqtt) HandleMessage(topic string, body []byte) {
	sub := m.match(topic, body)
	if sub == nil {
		m.log.Debug("no subscription for message", "topic", topic)
		return
	}
	next, ok := m.catalog.ResolveNext(sub)
	if !ok {
		m.log.Warn("subscription has no next event", "event", sub.Name, "topic", topic)
		return
	}
	meta := sub.Metadata.Merge(payload.Metadata{sub.Name: map[string]any{
		"topic":    topic,
		"segments": segments(topic),
	}})
	m.log.Debug("message matched", "event", sub.Name, "topic", topic, "next", next.Name)
	forward(m.queue, next, payload.Decode(body), meta)
}

func (m *Mqtt) match(topic string, body []byte) *event.Event {
	for _, ev := range m.catalog.All() {
		if ev.Kind == event.KindMqttSubscribe && ev.MqttSubscribe.Matches(topic, body) {
			return ev
		}
	}
	return nil
}
