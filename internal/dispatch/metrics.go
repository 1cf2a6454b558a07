package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/telemetry"
)

const dispatchScopeName = "github.com/eventloom/eventloom/dispatch"

// metrics counts loop activity and spans it. With telemetry disabled
// the instruments and tracer are no-ops, so recording is always safe.
type metrics struct {
	events  metric.Int64Counter
	dropped metric.Int64Counter
	dur     metric.Float64Histogram
	tracer  trace.Tracer
}

func newMetrics(queueLen func() int) *metrics {
	m := telemetry.Meter(dispatchScopeName)
	events, _ := m.Int64Counter("loom.dispatch.events",
		metric.WithDescription("Total events dispatched"),
	)
	dropped, _ := m.Int64Counter("loom.dispatch.dropped",
		metric.WithDescription("Events dropped before their transition"),
	)
	dur, _ := m.Float64Histogram("loom.dispatch.duration",
		metric.WithDescription("Dispatch handling duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	_, _ = m.Int64ObservableGauge("loom.dispatch.queue.depth",
		metric.WithDescription("Events waiting on the main queue"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(queueLen()))
			return nil
		}),
	)
	return &metrics{
		events:  events,
		dropped: dropped,
		dur:     dur,
		tracer:  telemetry.Tracer(dispatchScopeName),
	}
}

// span opens a dispatch span for one handled event.
func (m *metrics) span(ctx context.Context, ev *event.Event) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "dispatch."+string(ev.Kind),
		trace.WithAttributes(
			attribute.String("loom.event.name", ev.Name),
			attribute.String("loom.event.kind", string(ev.Kind)),
		),
	)
}

// actionSpan opens a span around a blocking worker action; the span
// stays open across the action so slow endpoints and subprocesses show
// their real duration.
func (m *metrics) actionSpan(ctx context.Context, name string, ev *event.Event) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String("loom.event.name", ev.Name)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// fail marks the span and counts the drop.
func (m *metrics) fail(ctx context.Context, span trace.Span, reason string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	m.drop(ctx, reason)
}

func (m *metrics) dispatched(ctx context.Context, kind event.Kind) {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("loom.event.kind", string(kind))))
}

func (m *metrics) drop(ctx context.Context, reason string) {
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("loom.drop.reason", reason)))
}

func (m *metrics) took(ctx context.Context, kind event.Kind, d time.Duration) {
	m.dur.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(attribute.String("loom.event.kind", string(kind))))
}
