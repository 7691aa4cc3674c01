package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/determined-ai/trialview/internal/config"
)

const defaultServiceName = "determined-trialview"

// startTracing exports spans over OTLP/gRPC and makes the resulting provider, together with W3C
// trace-context propagation, the process-wide default. The caller shuts the provider down.
func startTracing(
	ctx context.Context, c config.ObservabilityConfig, instanceID string,
) (*sdktrace.TracerProvider, error) {
	exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(c.OtlpEndpoint),
		otlptracegrpc.WithInsecure(),
	))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting trace exporter to %s", c.OtlpEndpoint)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler(c.TraceSampleRatio)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(defaultServiceName),
			semconv.ServiceInstanceIDKey.String(instanceID),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
