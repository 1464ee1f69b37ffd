package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jdillenkofer/filedrop/internal/settings"
)

const serviceName = "filedrop"

var storeTypeKey = attribute.Key("filedrop.store.type")

type ShutdownFunc func(context.Context) error

func noopShutdown(ctx context.Context) error {
	return nil
}

// SetupOTelSDK installs a global tracer provider exporting to the configured
// exporter. Without an exporter the global no-op tracer stays in place.
// The returned shutdown flushes pending spans and may be called repeatedly.
func SetupOTelSDK(ctx context.Context, s *settings.Settings) (ShutdownFunc, error) {
	if s.OtelExporter() == "" {
		return noopShutdown, nil
	}

	exporter, err := newExporter(ctx, s)
	if err != nil {
		return nil, err
	}
	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(newResource(ctx, s)),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var once sync.Once
	var shutdownErr error
	return func(ctx context.Context) error {
		once.Do(func() {
			shutdownErr = tracerProvider.Shutdown(ctx)
		})
		return shutdownErr
	}, nil
}

func newExporter(ctx context.Context, s *settings.Settings) (trace.SpanExporter, error) {
	switch s.OtelExporter() {
	case settings.OtelExporterOtlp:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if s.OtelEndpoint() != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(s.OtelEndpoint()))
		}
		return otlptracehttp.New(ctx, opts...)
	case settings.OtelExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("%w: %s", settings.ErrUnknownOtelExporter, s.OtelExporter())
}

// newResource describes this deployment. Detector failures only cost attributes.
func newResource(ctx context.Context, s *settings.Settings) *resource.Resource {
	attributes := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		storeTypeKey.String(s.StoreType()),
	}
	if s.StoreType() == settings.StoreTypeS3 {
		attributes = append(attributes, semconv.CloudProviderAWS, semconv.CloudRegion(s.Region()))
	}
	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithProcessRuntimeName(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attributes...),
		resource.WithFromEnv(),
	)
	if err != nil {
		slog.Warn("Incomplete OpenTelemetry resource", "error", err)
		if errors.Is(err, resource.ErrPartialResource) {
			return res
		}
		return resource.NewSchemaless(attributes...)
	}
	return res
}
