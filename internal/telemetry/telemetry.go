// Package telemetry wires the optional OpenTelemetry pipeline.
//
// Everything stays off unless LOOM_OTEL_ENABLED=true; the instruments
// the rest of the code records into are then no-ops and cost nothing.
// With it on, spans and metrics flow to stdout (LOOM_OTEL_STDOUT=true,
// dev mode) and/or an OTLP gRPC collector:
//
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4317          spans + metrics
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT=...             metrics-only override
//
// Dispatch opens a span per handled event and per worker action, so a
// collector sees the chain an inbound trigger sets off.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scope = "github.com/eventloom/eventloom"

var shutdown []func(context.Context) error

// Enabled reports whether the pipeline is active.
func Enabled() bool {
	return os.Getenv("LOOM_OTEL_ENABLED") == "true"
}

func stdoutWanted() bool {
	return os.Getenv("LOOM_OTEL_STDOUT") == "true"
}

// Init installs the global providers. Disabled runs get no-ops.
func Init(ctx context.Context, serviceName, version string) error {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := traceProvider(ctx, res)
	if err != nil {
		return fmt.Errorf("telemetry: traces: %w", err)
	}
	otel.SetTracerProvider(tp)
	shutdown = append(shutdown, tp.Shutdown)

	mp, err := meterProvider(ctx, res)
	if err != nil {
		return fmt.Errorf("telemetry: metrics: %w", err)
	}
	otel.SetMeterProvider(mp)
	shutdown = append(shutdown, mp.Shutdown)

	return nil
}

// traceProvider batches spans to every configured exporter. An enabled
// run with nothing configured falls back to stdout so spans never
// silently vanish.
func traceProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint != "" {
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp span exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	if stdoutWanted() || endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

func meterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint != "" {
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)),
		))
	}
	if stdoutWanted() {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second)),
		))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns a tracer for the named instrumentation scope.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = scope
	}
	return otel.Tracer(name)
}

// Meter returns a meter for the named instrumentation scope.
func Meter(name string) metric.Meter {
	if name == "" {
		name = scope
	}
	return otel.Meter(name)
}

// Shutdown flushes and stops the installed providers.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdown {
		_ = fn(ctx)
	}
	shutdown = nil
}
