package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var ErrTracingEnable = errors.New("failed to enable tracing")

func StartTracing(ctx context.Context, spanName string, tracingEnabled bool, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	if !tracingEnabled {
		return ctx, nil
	}

	var span trace.Span
	tracer := otel.Tracer("")
	if tracer == nil {
		return ctx, nil
	}

	if len(attributes) > 0 {
		ctx, span = tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
		return ctx, span
	}

	ctx, span = tracer.Start(ctx, spanName)
	return ctx, span
}

func EndTracing(span trace.Span, err error) {
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Enable installs a global OTLP gRPC tracer provider sampling the given ratio of traces. The
// returned function flushes and shuts the provider down.
func Enable(logger *slog.Logger, serviceName string, dialAddr string, sample int) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(dialAddr), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, errors.Join(ErrTracingEnable, fmt.Errorf("failed to create exporter: %w", err))
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, errors.Join(ErrTracingEnable, fmt.Errorf("failed to create resource: %w", err))
	}

	if sample <= 0 || sample > 100 {
		sample = 100
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(r),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(float64(sample)/100))),
	)

	otel.SetTracerProvider(tp)

	cleanup := func() {
		err = tp.Shutdown(ctx)
		if err != nil {
			logger.Error("Failed to shutdown tracing provider", slog.String("err", err.Error()))
		}
	}

	return cleanup, nil
}

// KeyValues converts configured span attributes.
func KeyValues(attributes map[string]string) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attributes))
	for key, value := range attributes {
		kvs = append(kvs, attribute.String(key, value))
	}

	return kvs
}
