package handler

import (
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCreateDto is the body of POST /products.
type ProductCreateDto struct {
	Barcode        string          `json:"barcode" validate:"required,max=64"`
	Name           string          `json:"name" validate:"required,max=255"`
	Description    *string         `json:"description,omitempty"`
	PurchasePrice  decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	RetailPrice    decimal.Decimal `json:"retail_price" validate:"gte=0"`
	WholesalePrice decimal.Decimal `json:"wholesale_price" validate:"gte=0"`
	Quantity       int             `json:"quantity" validate:"gte=0"`
}

func (d ProductCreateDto) toModel() model.Product {
	return model.Product{
		Barcode:        d.Barcode,
		Name:           d.Name,
		Description:    d.Description,
		PurchasePrice:  d.PurchasePrice,
		RetailPrice:    d.RetailPrice,
		WholesalePrice: d.WholesalePrice,
		Quantity:       d.Quantity,
	}
}

// ProductUpdateDto is the body of PATCH /products/{barcode}. Absent fields are left unchanged.
type ProductUpdateDto struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description    *string          `json:"description,omitempty"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	RetailPrice    *decimal.Decimal `json:"retail_price,omitempty" validate:"omitempty,gte=0"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price,omitempty" validate:"omitempty,gte=0"`
	Quantity       *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
}

func (d ProductUpdateDto) toModel() model.ProductUpdate {
	return model.ProductUpdate{
		Name:           d.Name,
		Description:    d.Description,
		PurchasePrice:  d.PurchasePrice,
		RetailPrice:    d.RetailPrice,
		WholesalePrice: d.WholesalePrice,
		Quantity:       d.Quantity,
	}
}

// RefillDto is the body of POST /products/{barcode}/refill.
type RefillDto struct {
	Amount *int `json:"amount" validate:"required"`
}

// PriceHistoryDto is one price snapshot.
type PriceHistoryDto struct {
	ID             int64           `json:"id"`
	RetailPrice    decimal.Decimal `json:"retail_price"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// ProductDto is a product with its price history, newest first.
type ProductDto struct {
	model.InventoryRow
	PriceHistory []PriceHistoryDto `json:"price_history"`
}

func toProductDto(p *model.Product) ProductDto {
	return ProductDto{InventoryRow: p.Row(), PriceHistory: toHistoryDto(p.PriceHistory)}
}

func toHistoryDto(history []model.ProductPriceHistory) []PriceHistoryDto {
	out := make([]PriceHistoryDto, 0, len(history))
	for _, h := range history {
		out = append(out, PriceHistoryDto{
			ID:             h.ID,
			RetailPrice:    h.RetailPrice,
			WholesalePrice: h.WholesalePrice,
			RecordedAt:     h.RecordedAt,
		})
	}
	return out
}

// StartSaleDto is the body of POST /sale.
type StartSaleDto struct {
	ClientID string `json:"client_id" validate:"required,max=64"`
}

// AddItemDto is the body of POST /sale/items. A missing unit price defaults to the retail price.
type AddItemDto struct {
	Barcode   string           `json:"barcode" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

// SaleItemDto is one line of the open sale.
type SaleItemDto struct {
	Index int `json:"index"`
	model.SaleItem
	Total decimal.Decimal `json:"total"`
}

// SaleStateDto is the state of the till.
type SaleStateDto struct {
	Open     bool            `json:"open"`
	ClientID string          `json:"client_id,omitempty"`
	Items    []SaleItemDto   `json:"items"`
	Total    decimal.Decimal `json:"total"`
}

func toSaleItemsDto(items []model.SaleItem) []SaleItemDto {
	out := make([]SaleItemDto, 0, len(items))
	for i, item := range items {
		out = append(out, SaleItemDto{Index: i, SaleItem: item, Total: item.Total()})
	}
	return out
}

// FinalizedSaleDto is the result of POST /sale/finalize.
type FinalizedSaleDto struct {
	SaleID       uuid.UUID       `json:"sale_id"`
	ClientID     string          `json:"client_id"`
	Items        []SaleItemDto   `json:"items"`
	Total        decimal.Decimal `json:"total"`
	CompletedAt  time.Time       `json:"completed_at"`
	ReceiptError string          `json:"receipt_error,omitempty"`
}

func toFinalizedDto(s model.FinalizedSale) FinalizedSaleDto {
	return FinalizedSaleDto{
		SaleID:      s.ID,
		ClientID:    s.ClientID,
		Items:       toSaleItemsDto(s.Items),
		Total:       s.Total,
		CompletedAt: s.CompletedAt,
	}
}
