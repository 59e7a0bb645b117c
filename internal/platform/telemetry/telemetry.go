// Package telemetry sets up OpenTelemetry tracing for the service.
package telemetry

import (
	"context"
	"fmt"

	"github.com/abgdnv/gopos/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// NewTracerProvider exports till spans over OTLP/HTTP and installs the provider
// and the W3C trace-context propagator globally. The caller shuts the provider down.
func NewTracerProvider(ctx context.Context, cfg config.TelemetryConfig) (*tracesdk.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg.Traces.OtlpHttp)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(Resource(cfg)),
		tracesdk.WithSampler(Sampler(cfg.Traces.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

func exporterOptions(cfg config.OtlpHttpConfig) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// Resource describes this till to the collector. Empty version or environment
// values are left out.
func Resource(cfg config.TelemetryConfig) *resource.Resource {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(cfg.Environment))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// Sampler keeps ratio of root traces and follows the parent decision otherwise.
// A ratio of 1 or more keeps everything.
func Sampler(ratio float64) tracesdk.Sampler {
	if ratio >= 1 {
		return tracesdk.ParentBased(tracesdk.AlwaysSample())
	}
	return tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))
}
