package infrastructure

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Values accepted by OTEL_EXPORTER.
const (
	ExporterTypeGRPC   = "grpc"
	ExporterTypeStdOut = "stdout"
)

type (
	ShutdownFunc func(ctx context.Context) error

	exporterFactory func(ctx context.Context, cfg config.Telemetry) (sdktrace.SpanExporter, error)
)

var exporters = map[string]exporterFactory{
	ExporterTypeGRPC: func(ctx context.Context, cfg config.Telemetry) (sdktrace.SpanExporter, error) {
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	},
	ExporterTypeStdOut: func(context.Context, config.Telemetry) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	},
}

// NewTracerProvider installs a batching SDK provider as the global one
// together with W3C trace context and baggage propagation. Root spans are
// sampled at TRACES_SAMPLER_RATIO and children follow their parent. attrs
// are added to the service resource.
func NewTracerProvider(cfg config.Telemetry, attrs ...attribute.KeyValue) (otelTrace.TracerProvider, ShutdownFunc, error) {
	ctx := context.Background()

	newExporter, ok := exporters[strings.ToLower(cfg.ExporterType)]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported trace exporter %q", cfg.ExporterType)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s trace exporter: %w", cfg.ExporterType, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName), semconv.ServiceVersion(cfg.ServiceVersion)),
		resource.WithAttributes(attrs...),
		resource.WithHost(),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)

		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Traces.SamplerRatio))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, tp.Shutdown, nil
}

func NewNoopTracerProvider() otelTrace.TracerProvider {
	return noop.NewTracerProvider()
}
