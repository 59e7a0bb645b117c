// Package events holds the messages published about completed sales.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Subjects of the published events. StreamSubjects captures all of them.
const (
	SalesFinalizedSubject = "pos.sales.finalized"
	StreamSubjects        = "pos.sales.>"
)

type SaleFinalizedItem struct {
	Barcode   string          `json:"barcode"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SaleFinalizedEvent announces a persisted sale. Carrier holds the trace
// context of the request that finalized it.
type SaleFinalizedEvent struct {
	SaleID      uuid.UUID              `json:"sale_id"`
	ClientID    string                 `json:"client_id"`
	Items       []SaleFinalizedItem    `json:"items"`
	Total       decimal.Decimal        `json:"total"`
	CompletedAt time.Time              `json:"completed_at"`
	Carrier     propagation.MapCarrier `json:"carrier,omitempty"`
}

// NewSaleFinalized builds the event of a persisted sale, carrying the trace context of ctx.
func NewSaleFinalized(ctx context.Context, s model.FinalizedSale) SaleFinalizedEvent {
	items := make([]SaleFinalizedItem, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, SaleFinalizedItem{Barcode: item.Barcode, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return SaleFinalizedEvent{
		SaleID:      s.ID,
		ClientID:    s.ClientID,
		Items:       items,
		Total:       s.Total,
		CompletedAt: s.CompletedAt,
		Carrier:     carrier,
	}
}

func (e SaleFinalizedEvent) Subject() string {
	return SalesFinalizedSubject
}

// MessageID is the sale id, so announcing the same sale twice is deduplicated.
func (e SaleFinalizedEvent) MessageID() string {
	return e.SaleID.String()
}

func (e SaleFinalizedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
