package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/store"
)

const storeScopeName = "github.com/eventloom/eventloom/store"

// InstrumentedStore wraps store.Store with OTel tracing and metrics.
// Every method gets a span and is counted in loom.store.* metrics.
// Use WrapStore to create one; it returns the original store unchanged
// when telemetry is disabled.
type InstrumentedStore struct {
	inner  store.Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStore(s store.Store) store.Store {
	if !Enabled() {
		return s
	}
	m := Meter(storeScopeName)
	ops, _ := m.Int64Counter("loom.store.operations",
		metric.WithDescription("Total store operations executed"),
	)
	dur, _ := m.Float64Histogram("loom.store.operation.duration",
		metric.WithDescription("Store operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("loom.store.errors",
		metric.WithDescription("Total store operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: Tracer(storeScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named store operation.
func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "store."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedStore) Put(ctx context.Context, id string, ev *event.Event) error {
	attrs := []attribute.KeyValue{
		attribute.String("loom.event.id", id),
		attribute.String("loom.event.kind", string(ev.Kind)),
	}
	ctx, span, t := s.op(ctx, "Put", attrs...)
	err := s.inner.Put(ctx, id, ev)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (*event.Event, error) {
	attrs := []attribute.KeyValue{attribute.String("loom.event.id", id)}
	ctx, span, t := s.op(ctx, "Get", attrs...)
	v, err := s.inner.Get(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Bool("loom.store.hit", v != nil))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	attrs := []attribute.KeyValue{attribute.String("loom.event.id", id)}
	ctx, span, t := s.op(ctx, "Delete", attrs...)
	err := s.inner.Delete(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}
