package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/abgdnv/gopos/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

func TestNewTracerProvider(t *testing.T) {
	// given
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "pos-test"}
	cfg.Traces.SampleRatio = 1
	cfg.Traces.OtlpHttp.Endpoint = "127.0.0.1:4318"
	cfg.Traces.OtlpHttp.Insecure = true
	cfg.Traces.OtlpHttp.Timeout = 100 * time.Millisecond

	// when
	tp, err := NewTracerProvider(context.Background(), cfg)

	// then
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tp.Shutdown(ctx)
}

func TestResource(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      config.TelemetryConfig
		expected map[attribute.Key]string
		absent   []attribute.Key
	}{
		{
			name: "version and environment",
			cfg:  config.TelemetryConfig{ServiceName: "pos-service", ServiceVersion: "1.4.0", Environment: "shop-floor"},
			expected: map[attribute.Key]string{
				semconv.ServiceNameKey:               "pos-service",
				semconv.ServiceVersionKey:            "1.4.0",
				semconv.DeploymentEnvironmentNameKey: "shop-floor",
			},
		},
		{
			name:     "name only",
			cfg:      config.TelemetryConfig{ServiceName: "pos-service"},
			expected: map[attribute.Key]string{semconv.ServiceNameKey: "pos-service"},
			absent:   []attribute.Key{semconv.ServiceVersionKey, semconv.DeploymentEnvironmentNameKey},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			res := Resource(tc.cfg)
			// then
			set := res.Set()
			for key, want := range tc.expected {
				got, ok := set.Value(key)
				require.True(t, ok, key)
				assert.Equal(t, want, got.AsString())
			}
			for _, key := range tc.absent {
				_, ok := set.Value(key)
				assert.False(t, ok, key)
			}
		})
	}
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, Sampler(2).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, Sampler(0).Description(), "TraceIDRatioBased{0}")
}
