package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
	"github.com/eventloom/eventloom/internal/render"
)

// Inline actions return true when the transition chain should continue.
// Failures are logged and drop the current event; the loop itself never
// stops on an action error.

func (d *Dispatcher) mqttPublish(ctx context.Context, ev *event.Event, tctx map[string]any) bool {
	spec := ev.MqttPublish
	client, ok := d.pools.Mqtt.Get(spec.PoolID)
	if !ok {
		d.log.Warn("unknown mqtt pool", "event", ev.Name, "pool", spec.PoolID)
		d.metrics.drop(ctx, "pool_missing")
		return false
	}
	body := ev.Payload.ToBytes()
	if spec.Template != "" {
		s, err := render.Render(spec.Template, tctx)
		if err != nil {
			d.log.Warn("publish template failed", "event", ev.Name, "error", err)
			d.metrics.drop(ctx, "template")
			return false
		}
		body = []byte(s)
	}
	if len(body) == 0 {
		d.log.Info("skipping empty publish", "event", ev.Name, "topic", spec.Topic)
		return false
	}
	if err := client.Publish(spec.Topic, body, spec.Retain); err != nil {
		d.log.Warn("mqtt publish failed", "event", ev.Name, "topic", spec.Topic, "error", err)
		d.metrics.drop(ctx, "action_error")
		return false
	}
	return true
}

// mqttSubscribe registers the broker subscription. The next transition
// belongs to message arrivals, so dispatching the subscription itself
// never forwards.
func (d *Dispatcher) mqttSubscribe(ctx context.Context, ev *event.Event) {
	spec := ev.MqttSubscribe
	client, ok := d.pools.Mqtt.Get(spec.PoolID)
	if !ok {
		d.log.Warn("unknown mqtt pool", "event", ev.Name, "pool", spec.PoolID)
		d.metrics.drop(ctx, "pool_missing")
		return
	}
	if d.onMqtt == nil {
		d.log.Warn("no mqtt arrival handler attached", "event", ev.Name)
		return
	}
	if err := client.Subscribe(spec.Topic, d.onMqtt); err != nil {
		d.log.Warn("mqtt subscribe failed", "event", ev.Name, "topic", spec.Topic, "error", err)
		d.metrics.drop(ctx, "action_error")
		return
	}
	d.log.Info("subscribed", "event", ev.Name, "topic", spec.Topic)
}

func (d *Dispatcher) mqttUnsubscribe(ctx context.Context, ev *event.Event) bool {
	spec := ev.MqttUnsubscribe
	client, ok := d.pools.Mqtt.Get(spec.PoolID)
	if !ok {
		d.log.Warn("unknown mqtt pool", "event", ev.Name, "pool", spec.PoolID)
		d.metrics.drop(ctx, "pool_missing")
		return false
	}
	if err := client.Unsubscribe(spec.Topic); err != nil {
		d.log.Warn("mqtt unsubscribe failed", "event", ev.Name, "topic", spec.Topic, "error", err)
		d.metrics.drop(ctx, "action_error")
		return false
	}
	return true
}

// apiListen starts or stops an endpoint subscription. Starting stores
// the event for inbound matching and ends the chain; stopping removes
// it and lets the chain continue.
func (d *Dispatcher) apiListen(ctx context.Context, ev *event.Event) bool {
	spec := ev.ApiListen
	set, ok := d.pools.Listeners.Get(spec.PoolID)
	if !ok {
		d.log.Warn("unknown http pool", "event", ev.Name, "pool", spec.PoolID)
		d.metrics.drop(ctx, "pool_missing")
		return false
	}
	switch spec.Action {
	case event.ListenStop:
		set.Remove(ev.Name)
		d.log.Info("listener stopped", "event", ev.Name, "url", spec.URL)
		return true
	default:
		set.Upsert(ev)
		d.log.Info("listener started", "event", ev.Name, "url", spec.URL, "method", spec.Method)
		return false
	}
}

func (d *Dispatcher) fileRead(ctx context.Context, ev *event.Event, nextName string) {
	spec := ev.FileRead
	b, err := os.ReadFile(spec.File)
	if err != nil {
		d.log.Warn("file read failed", "event", ev.Name, "file", spec.File, "error", err)
		d.metrics.drop(ctx, "action_error")
		return
	}
	data, err := payload.FromReader(bytes.NewReader(b), spec.DataType.PayloadType())
	if err != nil {
		d.log.Warn("file content not decodable", "event", ev.Name, "file", spec.File, "error", err)
		d.metrics.drop(ctx, "action_error")
		return
	}
	d.forward(ctx, ev, nextName, data, nil)
}

func (d *Dispatcher) fileWrite(ctx context.Context, ev *event.Event) bool {
	spec := ev.FileWrite
	body := ev.Payload.ToBytes()
	if len(body) == 0 {
		d.log.Debug("nothing to write", "event", ev.Name, "file", spec.File)
		return true
	}
	flags := os.O_CREATE | os.O_WRONLY
	if spec.Mode == event.WriteAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(spec.File, flags, 0o644)
	if err != nil {
		d.log.Warn("file write failed", "event", ev.Name, "file", spec.File, "error", err)
		d.metrics.drop(ctx, "action_error")
		return false
	}
	_, werr := f.Write(body)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		d.log.Warn("file write failed", "event", ev.Name, "file", spec.File, "error", werr)
		d.metrics.drop(ctx, "action_error")
		return false
	}
	return true
}

func (d *Dispatcher) watch(ctx context.Context, ev *event.Event) bool {
	if d.watcher == nil {
		d.log.Warn("no file watcher attached", "event", ev.Name)
		d.metrics.drop(ctx, "action_error")
		return false
	}
	spec := ev.Watch
	var err error
	switch spec.Action {
	case event.WatchStop:
		err = d.watcher.Unwatch(spec.Path)
	default:
		err = d.watcher.Watch(spec.Path, spec.Recursive)
	}
	if err != nil {
		d.log.Warn("watch control failed", "event", ev.Name, "path", spec.Path, "action", string(spec.Action), "error", err)
		d.metrics.drop(ctx, "action_error")
		return false
	}
	return true
}

func (d *Dispatcher) print(ev *event.Event) {
	out := d.stdout
	if ev.Print.Output == event.PrintStderr {
		out = d.stderr
	}
	fmt.Fprintln(out, ev.Payload.String())
}
