package sale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithSyncer(exporter)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return exporter
}

func attr(span tracetest.SpanStub, key attribute.Key) attribute.Value {
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestFinalizeSale_Span(t *testing.T) {
	// given
	exporter := recordSpans(t)
	f := newFixture(t)
	require.NoError(t, f.sales.StartSale(f.ctx, "C1"))
	require.NoError(t, f.sales.AddItem(f.ctx, "123", 2, dec("1.5")))

	// when
	done, err := f.sales.FinalizeSale(f.ctx)

	// then
	require.NoError(t, err)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sale.finalize", spans[0].Name)
	assert.Equal(t, "C1", attr(spans[0], "pos.client_id").AsString())
	assert.Equal(t, int64(1), attr(spans[0], "pos.sale.items").AsInt64())
	assert.Equal(t, done.ID.String(), attr(spans[0], "pos.sale.id").AsString())
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestFinalizeSale_SpanRecordsFailure(t *testing.T) {
	// given
	exporter := recordSpans(t)
	f := newFixture(t)
	require.NoError(t, f.sales.StartSale(f.ctx, "C1"))
	require.NoError(t, f.sales.AddItem(f.ctx, "123", 1, dec("1.5")))
	f.flaky.failSaveSale = true

	// when
	_, err := f.sales.FinalizeSale(f.ctx)

	// then
	require.Error(t, err)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
