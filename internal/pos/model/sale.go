package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem is one line of a sale. The product is referenced by barcode only;
// stock changes go through the inventory manager.
type SaleItem struct {
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Total is quantity times unit price.
func (i SaleItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is an in-progress sale. Items keep insertion order.
type Sale struct {
	ClientID string
	Items    []SaleItem
}

// AddItem appends an item.
func (s *Sale) AddItem(item SaleItem) {
	s.Items = append(s.Items, item)
}

// RemoveItem deletes the item at index; later items shift down by one.
// It reports false when index is out of range.
func (s *Sale) RemoveItem(index int) bool {
	if index < 0 || index >= len(s.Items) {
		return false
	}
	s.Items = append(s.Items[:index], s.Items[index+1:]...)
	return true
}

// Total sums the item totals.
func (s *Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Total())
	}
	return total
}

// FinalizedSale is a persisted sale together with its computed total.
type FinalizedSale struct {
	ID          uuid.UUID
	ClientID    string
	Items       []SaleItem
	Total       decimal.Decimal
	CompletedAt time.Time
}

// SalesSummaryRow is one persisted sale line joined with its sale header.
type SalesSummaryRow struct {
	SaleID    uuid.UUID       `json:"sale_id"`
	ClientID  string          `json:"client_id"`
	Timestamp time.Time       `json:"timestamp"`
	Barcode   string          `json:"product_barcode"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}
