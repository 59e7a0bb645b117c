// Package model holds the point-of-sale domain types shared by the store, the managers and the transports.
package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/shopspring/decimal"
)

// Product represents a product entity tracked by the inventory.
// PriceHistory is ordered newest-first.
type Product struct {
	Barcode        string
	Name           string
	Description    *string
	PurchasePrice  decimal.Decimal
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	Quantity       int
	PriceHistory   []ProductPriceHistory
}

// ProductPriceHistory is an immutable snapshot of a product's sale prices.
type ProductPriceHistory struct {
	ID             int64
	Barcode        string
	RetailPrice    decimal.Decimal
	WholesalePrice decimal.Decimal
	RecordedAt     time.Time
}

// SortHistory orders entries newest first. On equal timestamps the later
// insert, the higher ID, comes first.
func SortHistory(entries []ProductPriceHistory) {
	slices.SortStableFunc(entries, func(a, b ProductPriceHistory) int {
		if c := b.RecordedAt.Compare(a.RecordedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// ProductUpdate carries one optional slot per mutable product attribute.
// Nil slots keep the current value.
type ProductUpdate struct {
	Name           *string
	Description    *string
	PurchasePrice  *decimal.Decimal
	RetailPrice    *decimal.Decimal
	WholesalePrice *decimal.Decimal
	Quantity       *int
}

// IsEmpty reports whether the update carries no field at all.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.PurchasePrice == nil &&
		u.RetailPrice == nil && u.WholesalePrice == nil && u.Quantity == nil
}

// Validate checks the product invariants.
// Returns ErrInvalidProduct describing the first violation found.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Barcode) == "":
		return fmt.Errorf("barcode is required: %w", perrors.ErrInvalidProduct)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("name is required: %w", perrors.ErrInvalidProduct)
	case p.PurchasePrice.IsNegative():
		return fmt.Errorf("purchase price must not be negative: %w", perrors.ErrInvalidProduct)
	case p.RetailPrice.IsNegative():
		return fmt.Errorf("retail price must not be negative: %w", perrors.ErrInvalidProduct)
	case p.WholesalePrice.IsNegative():
		return fmt.Errorf("wholesale price must not be negative: %w", perrors.ErrInvalidProduct)
	case p.Quantity < 0:
		return fmt.Errorf("quantity must not be negative: %w", perrors.ErrInvalidProduct)
	}
	for _, h := range p.PriceHistory {
		if h.Barcode != p.Barcode {
			return fmt.Errorf("price history entry belongs to %q: %w", h.Barcode, perrors.ErrInvalidProduct)
		}
	}
	return nil
}

// Clone returns a deep copy, so callers can mutate it without touching the original.
func (p *Product) Clone() *Product {
	c := *p
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	if p.PriceHistory != nil {
		c.PriceHistory = make([]ProductPriceHistory, len(p.PriceHistory))
		copy(c.PriceHistory, p.PriceHistory)
	}
	return &c
}

// Apply copies the supplied fields of u onto p and reports whether the retail
// or wholesale price value actually changed.
func (p *Product) Apply(u ProductUpdate) bool {
	oldRetail, oldWholesale := p.RetailPrice, p.WholesalePrice

	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		d := *u.Description
		p.Description = &d
	}
	if u.PurchasePrice != nil {
		p.PurchasePrice = *u.PurchasePrice
	}
	if u.RetailPrice != nil {
		p.RetailPrice = *u.RetailPrice
	}
	if u.WholesalePrice != nil {
		p.WholesalePrice = *u.WholesalePrice
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}

	return !p.RetailPrice.Equal(oldRetail) || !p.WholesalePrice.Equal(oldWholesale)
}

// Snapshot builds a history entry from the current sale prices.
func (p *Product) Snapshot(at time.Time) ProductPriceHistory {
	return ProductPriceHistory{
		Barcode:        p.Barcode,
		RetailPrice:    p.RetailPrice,
		WholesalePrice: p.WholesalePrice,
		RecordedAt:     at.UTC(),
	}
}

// InventoryRow is a flat view of a product for tables and exports.
type InventoryRow struct {
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	RetailPrice    decimal.Decimal `json:"retail_price"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	Quantity       int             `json:"quantity"`
}

// Row flattens the product.
func (p *Product) Row() InventoryRow {
	row := InventoryRow{
		Barcode:        p.Barcode,
		Name:           p.Name,
		PurchasePrice:  p.PurchasePrice,
		RetailPrice:    p.RetailPrice,
		WholesalePrice: p.WholesalePrice,
		Quantity:       p.Quantity,
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	return row
}
