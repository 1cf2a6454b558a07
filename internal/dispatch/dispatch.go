// Package dispatch runs the single-consumer loop that turns queued
// events into actions and follow-up events.
//
// One goroutine owns the loop and the per-run state map, so no handler
// needs locking. Blocking actions (HTTP calls, subprocesses) run on
// worker goroutines and feed their results back through the same queue;
// everything else completes inline before the next event is considered.
package dispatch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
	"github.com/eventloom/eventloom/internal/pool"
	"github.com/eventloom/eventloom/internal/render"
)

// QueueSize bounds the main queue. Producers overflowing it hand off to
// a goroutine instead of blocking, so a full queue degrades ordering,
// not delivery.
const QueueSize = 1024

// Watcher is the dispatcher's handle on the shared file-system watcher.
type Watcher interface {
	Watch(path string, recursive bool) error
	Unwatch(path string) error
}

// Options wires a dispatcher. Queue and Scheduler are owned by the
// caller; MqttMessages is the arrival handler registered on broker
// subscriptions.
type Options struct {
	Catalog      *event.Catalog
	Pools        *pool.Pools
	Queue        chan *event.Event
	Scheduler    chan<- *event.Event
	Watcher      Watcher
	MqttMessages func(topic string, body []byte)
	Log          *slog.Logger
}

// Dispatcher consumes the main queue.
type Dispatcher struct {
	queue   chan *event.Event
	catalog *event.Catalog
	pools   *pool.Pools
	sched   chan<- *event.Event
	watcher Watcher
	onMqtt  func(topic string, body []byte)
	log     *slog.Logger
	metrics *metrics

	// state is only touched by the dispatch goroutine.
	state map[string]string

	workers *errgroup.Group

	// test seams
	now    func() time.Time
	stdout io.Writer
	stderr io.Writer
}

// New builds a dispatcher. A nil Queue gets a fresh one.
func New(opts Options) *Dispatcher {
	if opts.Queue == nil {
		opts.Queue = make(chan *event.Event, QueueSize)
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	d := &Dispatcher{
		queue:   opts.Queue,
		catalog: opts.Catalog,
		pools:   opts.Pools,
		sched:   opts.Scheduler,
		watcher: opts.Watcher,
		onMqtt:  opts.MqttMessages,
		log:     opts.Log,
		state:   make(map[string]string),
		now:     time.Now,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	d.metrics = newMetrics(func() int { return len(d.queue) })
	return d
}

// Queue returns the send side of the main queue for sources and boot.
func (d *Dispatcher) Queue() chan<- *event.Event { return d.queue }

// Run consumes the queue until ctx is cancelled, then waits for
// in-flight workers to drain.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	d.workers = g
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.queue:
			if !ok {
				return nil
			}
			d.dispatch(gctx, ev)
		}
	}
}

// dispatch runs one event through the state, transition and action
// steps.
func (d *Dispatcher) dispatch(ctx context.Context, ev *event.Event) {
	start := time.Now()
	ctx, span := d.metrics.span(ctx, ev)
	defer span.End()
	d.log.Debug("dispatching", "event", ev.Name, "kind", ev.Kind)
	d.metrics.dispatched(ctx, ev.Kind)
	defer func() { d.metrics.took(ctx, ev.Kind, time.Since(start)) }()

	d.applyState(ev)
	tctx := d.templateContext(ev)

	nextName, ok := d.nextName(ev, tctx)
	if !ok {
		d.metrics.drop(ctx, "template")
		return
	}
	if nextName != "" && nextName == ev.Name {
		d.log.Warn("event transitions to itself, dropping", "event", ev.Name)
		d.metrics.drop(ctx, "self_transition")
		return
	}

	switch ev.Kind {
	case event.KindTime, event.KindRepeat:
		d.toScheduler(ev)
		return
	case event.KindPeriod:
		if !ev.Period.Matches(d.now()) {
			d.log.Debug("outside period, dropping", "event", ev.Name)
			d.metrics.drop(ctx, "outside_period")
			return
		}
	case event.KindApiCall:
		d.launchApiCall(ctx, ev, tctx, nextName)
		return
	case event.KindExecute:
		d.launchExecute(ctx, ev, tctx, nextName)
		return
	case event.KindMqttSubscribe:
		d.mqttSubscribe(ctx, ev)
		return
	case event.KindMqttUnsubscribe:
		if !d.mqttUnsubscribe(ctx, ev) {
			return
		}
	case event.KindMqttPublish:
		if !d.mqttPublish(ctx, ev, tctx) {
			return
		}
	case event.KindApiListen:
		if !d.apiListen(ctx, ev) {
			return
		}
	case event.KindFileRead:
		d.fileRead(ctx, ev, nextName)
		return
	case event.KindFileWrite:
		if !d.fileWrite(ctx, ev) {
			return
		}
	case event.KindWatch:
		if !d.watch(ctx, ev) {
			return
		}
	case event.KindPrint:
		d.print(ev)
	case event.KindPass, event.KindFileChanged, event.KindScanCodeRead:
		// Trigger kinds reaching the queue directly act as pass-throughs.
	}

	d.forward(ctx, ev, nextName, ev.Payload, nil)
}

// applyState bumps the event's counter and applies its static overrides.
// Counters start at "0" so the first fire renders as zero.
func (d *Dispatcher) applyState(ev *event.Event) {
	if ev.State == nil {
		return
	}
	if key := ev.State.Count; key != "" {
		cur, ok := d.state[key]
		if !ok {
			d.state[key] = "0"
		} else if n, err := strconv.Atoi(cur); err != nil {
			d.state[key] = "0"
		} else {
			d.state[key] = strconv.Itoa(n + 1)
		}
	}
	for k, v := range ev.State.Replace {
		d.state[k] = v
	}
}

// templateContext exposes payload, metadata and run state to templates.
func (d *Dispatcher) templateContext(ev *event.Event) map[string]any {
	state := make(map[string]any, len(d.state))
	for k, v := range d.state {
		state[k] = v
	}
	return map[string]any{
		"data":     ev.Payload.TemplateValue(),
		"metadata": map[string]any(ev.Metadata),
		"state":    state,
	}
}

// nextName resolves the outgoing transition name. ok is false when a
// template fails to render, which drops the event.
func (d *Dispatcher) nextName(ev *event.Event, tctx map[string]any) (string, bool) {
	if ev.NextEvent != "" {
		return ev.NextEvent, true
	}
	if ev.NextTemplate == "" {
		return "", true
	}
	name, err := render.RenderName(ev.NextTemplate, tctx)
	if err != nil {
		d.log.Warn("next event template failed", "event", ev.Name, "error", err)
		return "", false
	}
	return name, true
}

// toScheduler re-arms the schedule and hands the event over.
func (d *Dispatcher) toScheduler(ev *event.Event) {
	if d.sched == nil {
		d.log.Warn("no scheduler attached, dropping timed event", "event", ev.Name)
		return
	}
	if err := ev.TimeSpec().Reset(d.now()); err != nil {
		d.log.Error("re-arming schedule failed", "event", ev.Name, "error", err)
		return
	}
	d.sched <- ev
}

// forward clones the named next event, merges the flow into it and puts
// it back on the queue. data is the action's contribution; meta carries
// any new annotations on top of the event's accumulated metadata.
func (d *Dispatcher) forward(ctx context.Context, ev *event.Event, nextName string, data payload.Data, meta payload.Metadata) {
	if nextName == "" {
		return
	}
	next, ok := d.catalog.Get(nextName)
	if !ok {
		d.log.Warn("next event not found", "event", ev.Name, "next", nextName)
		d.metrics.drop(ctx, "next_missing")
		return
	}
	flow := next.Clone()
	flow.Payload = flow.Payload.MergeWith(data, flow.MergePolicy)
	flow.Metadata = flow.Metadata.Merge(ev.Metadata.Merge(meta))
	d.enqueue(flow)
}

// enqueue never blocks the dispatch loop: when the queue is full the
// send moves to a goroutine, trading strict ordering for liveness.
func (d *Dispatcher) enqueue(ev *event.Event) {
	select {
	case d.queue <- ev:
	default:
		go func() { d.queue <- ev }()
	}
}
