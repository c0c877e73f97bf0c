// Package telemetry wraps OpenTelemetry tracing and RED metrics around
// the forge's pipeline operations (the CLI tracks build, verify and
// promote; consume and chain steps are not tracked),
// adapted from observability/observability.go. Disabled by default —
// a disabled Provider's methods are all safe no-ops, so call sites
// never need to branch on whether telemetry is configured.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName  string
	OTLPEndpoint string
	Enabled      bool
	Insecure     bool
}

// DefaultConfig returns the forge's disabled-by-default telemetry config.
func DefaultConfig() Config {
	return Config{
		ServiceName:  "skillforge",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
		Insecure:     true,
	}
}

// Provider manages the tracer, meter, and RED (rate, errors, duration) metrics.
type Provider struct {
	config Config
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	requestCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
	durationHist   metric.Float64Histogram
}

// New builds a Provider. When cfg.Enabled is false it returns a
// no-exporter Provider whose methods are safe no-ops.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{config: cfg, logger: slog.Default().With("component", "telemetry")}
	if !cfg.Enabled {
		p.logger.InfoContext(ctx, "telemetry disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("build trace exporter: %w", err)
	}
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("build metric exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)

	p.tracer = otel.Tracer("skillforge")
	p.meter = otel.Meter("skillforge")
	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "telemetry initialized", "endpoint", cfg.OTLPEndpoint)
	return p, nil
}

func (p *Provider) initMetrics() error {
	var err error
	p.requestCounter, err = p.meter.Int64Counter("forge.operations.total", metric.WithDescription("Total forge pipeline operations"))
	if err != nil {
		return err
	}
	p.errorCounter, err = p.meter.Int64Counter("forge.operations.errors", metric.WithDescription("Failed forge pipeline operations"))
	if err != nil {
		return err
	}
	p.durationHist, err = p.meter.Float64Histogram("forge.operation.duration", metric.WithDescription("Operation duration in seconds"), metric.WithUnit("s"))
	return err
}

// Shutdown flushes and releases the underlying exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown meter provider", "error", err)
		}
	}
	return nil
}

// TrackOperation wraps a named pipeline operation (build, verify,
// promote, consume) with a span and RED metrics. Returns a function
// to call with the operation's outcome when it completes.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	if p.tracer == nil {
		return ctx, func(error) {}
	}

	ctx, span := p.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
	if p.requestCounter != nil {
		p.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	return ctx, func(err error) {
		if p.durationHist != nil {
			p.durationHist.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		}
		if err != nil {
			span.RecordError(err)
			if p.errorCounter != nil {
				p.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
		}
		span.End()
	}
}
