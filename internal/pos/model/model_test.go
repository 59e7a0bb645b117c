package model

import (
	"testing"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validProduct() *Product {
	return &Product{
		Barcode:        "123",
		Name:           "Coca Cola",
		PurchasePrice:  decimal.RequireFromString("1.0"),
		RetailPrice:    decimal.RequireFromString("1.5"),
		WholesalePrice: decimal.RequireFromString("1.2"),
		Quantity:       10,
	}
}

func Test_Product_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(p *Product)
		wantErr bool
	}{
		{name: "Success - valid product", mutate: func(*Product) {}},
		{name: "Success - zero quantity and prices", mutate: func(p *Product) {
			p.Quantity = 0
			p.RetailPrice = decimal.Zero
		}},
		{name: "Error - empty barcode", mutate: func(p *Product) { p.Barcode = "  " }, wantErr: true},
		{name: "Error - empty name", mutate: func(p *Product) { p.Name = "" }, wantErr: true},
		{name: "Error - negative purchase price", mutate: func(p *Product) { p.PurchasePrice = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "Error - negative retail price", mutate: func(p *Product) { p.RetailPrice = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "Error - negative wholesale price", mutate: func(p *Product) { p.WholesalePrice = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "Error - negative quantity", mutate: func(p *Product) { p.Quantity = -1 }, wantErr: true},
		{name: "Error - foreign history entry", mutate: func(p *Product) {
			p.PriceHistory = []ProductPriceHistory{{Barcode: "other"}}
		}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			p := validProduct()
			tc.mutate(p)
			// when
			err := p.Validate()
			// then
			if tc.wantErr {
				assert.ErrorIs(t, err, perrors.ErrInvalidProduct)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_Product_Apply(t *testing.T) {
	testCases := []struct {
		name         string
		update       ProductUpdate
		priceChanged bool
		check        func(t *testing.T, p *Product)
	}{
		{
			name:   "Name only keeps prices",
			update: ProductUpdate{Name: ptr("Pepsi")},
			check: func(t *testing.T, p *Product) {
				assert.Equal(t, "Pepsi", p.Name)
				assert.True(t, p.RetailPrice.Equal(decimal.RequireFromString("1.5")))
			},
		},
		{
			name:         "Retail price change",
			update:       ProductUpdate{RetailPrice: ptr(decimal.RequireFromString("2.0"))},
			priceChanged: true,
		},
		{
			name:         "Wholesale price change",
			update:       ProductUpdate{WholesalePrice: ptr(decimal.RequireFromString("1.1"))},
			priceChanged: true,
		},
		{
			name:   "Same retail price with different scale is not a change",
			update: ProductUpdate{RetailPrice: ptr(decimal.RequireFromString("1.50"))},
		},
		{
			name:   "Purchase price is not tracked",
			update: ProductUpdate{PurchasePrice: ptr(decimal.RequireFromString("9"))},
		},
		{
			name:   "Description and quantity",
			update: ProductUpdate{Description: ptr("330ml"), Quantity: ptr(3)},
			check: func(t *testing.T, p *Product) {
				require.NotNil(t, p.Description)
				assert.Equal(t, "330ml", *p.Description)
				assert.Equal(t, 3, p.Quantity)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			p := validProduct()
			// when
			changed := p.Apply(tc.update)
			// then
			assert.Equal(t, tc.priceChanged, changed)
			if tc.check != nil {
				tc.check(t, p)
			}
		})
	}
}

func Test_Product_Clone(t *testing.T) {
	p := validProduct()
	p.Description = ptr("can")
	p.PriceHistory = []ProductPriceHistory{p.Snapshot(time.Now())}

	c := p.Clone()
	*c.Description = "bottle"
	c.PriceHistory[0].Barcode = "changed"
	c.Quantity = 1

	assert.Equal(t, "can", *p.Description)
	assert.Equal(t, "123", p.PriceHistory[0].Barcode)
	assert.Equal(t, 10, p.Quantity)
}

func Test_ProductUpdate_IsEmpty(t *testing.T) {
	assert.True(t, ProductUpdate{}.IsEmpty())
	assert.False(t, ProductUpdate{Quantity: ptr(0)}.IsEmpty())
}

func Test_Sale_Totals(t *testing.T) {
	s := Sale{ClientID: "C1"}
	s.AddItem(SaleItem{Barcode: "123", Quantity: 3, UnitPrice: decimal.RequireFromString("1.5")})
	s.AddItem(SaleItem{Barcode: "456", Quantity: 2, UnitPrice: decimal.RequireFromString("0.25")})

	assert.True(t, s.Items[0].Total().Equal(decimal.RequireFromString("4.5")))
	assert.True(t, s.Total().Equal(decimal.RequireFromString("5")))

	assert.False(t, s.RemoveItem(2))
	assert.False(t, s.RemoveItem(-1))
	assert.True(t, s.RemoveItem(0))
	require.Len(t, s.Items, 1)
	assert.Equal(t, "456", s.Items[0].Barcode)
	assert.True(t, s.Total().Equal(decimal.RequireFromString("0.5")))
}

func Test_Product_Row(t *testing.T) {
	p := validProduct()
	row := p.Row()
	assert.Equal(t, "", row.Description)
	p.Description = ptr("can")
	row = p.Row()
	assert.Equal(t, "can", row.Description)
	assert.Equal(t, 10, row.Quantity)
}

func Test_SortHistory(t *testing.T) {
	// given
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []ProductPriceHistory{
		{ID: 1, RecordedAt: at.Add(-time.Hour)},
		{ID: 2, RecordedAt: at},
		{ID: 3, RecordedAt: at},
	}
	// when
	SortHistory(entries)
	// then
	assert.Equal(t, []int64{3, 2, 1}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
}
