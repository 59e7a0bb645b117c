package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSaleFinalizedEvent(t *testing.T) {
	// given
	id := uuid.New()
	sale := model.FinalizedSale{
		ID:       id,
		ClientID: "C1",
		Items: []model.SaleItem{
			{Barcode: "123", Name: "Milk", Quantity: 3, UnitPrice: decimal.RequireFromString("1.5")},
		},
		Total:       decimal.RequireFromString("4.5"),
		CompletedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	// when
	event := NewSaleFinalized(context.Background(), sale)
	payload, err := event.Payload()

	// then
	require.NoError(t, err)
	assert.Equal(t, SalesFinalizedSubject, event.Subject())
	assert.Equal(t, id.String(), event.MessageID())
	assert.JSONEq(t, `{
		"sale_id": "`+id.String()+`",
		"client_id": "C1",
		"items": [{"barcode": "123", "quantity": 3, "unit_price": "1.5"}],
		"total": "4.5",
		"completed_at": "2024-05-01T12:00:00Z"
	}`, string(payload))

	var decoded SaleFinalizedEvent
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, id, decoded.SaleID)
}

func TestSaleFinalizedEvent_NoItems(t *testing.T) {
	event := NewSaleFinalized(context.Background(), model.FinalizedSale{ClientID: "C2", Total: decimal.Zero})

	payload, err := event.Payload()

	require.NoError(t, err)
	assert.Contains(t, string(payload), `"items":[]`)
}

func TestSaleFinalizedEvent_CarriesTraceContext(t *testing.T) {
	// given
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	// when
	event := NewSaleFinalized(ctx, model.FinalizedSale{ClientID: "C1"})

	// then
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", event.Carrier.Get("traceparent"))
	payload, err := event.Payload()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"carrier":{"traceparent":`)
}
