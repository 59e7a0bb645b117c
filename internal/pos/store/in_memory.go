package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
)

// InMemory implements Store using in-memory maps.
type InMemory struct {
	mu       sync.RWMutex
	products map[string]model.Product
	history  map[string][]model.ProductPriceHistory // insertion order
	sales    []storedSale
	nextID   int64
}

type storedSale struct {
	id         uuid.UUID
	clientID   string
	recordedAt time.Time
	items      []model.SaleItem
}

var _ Store = (*InMemory)(nil)

// NewInMemoryStore creates a new, empty in-memory store.
func NewInMemoryStore() *InMemory {
	return &InMemory{
		products: make(map[string]model.Product),
		history:  make(map[string][]model.ProductPriceHistory),
		nextID:   1,
	}
}

// SaveProduct inserts or fully replaces a product.
func (s *InMemory) SaveProduct(_ context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putProduct(product)
	return nil
}

// SavePriceHistory appends a price history entry.
func (s *InMemory) SavePriceHistory(_ context.Context, entry *model.ProductPriceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendHistory(entry)
	return nil
}

// SaveProductWithHistory upserts the product and appends the entries under one lock.
func (s *InMemory) SaveProductWithHistory(_ context.Context, product *model.Product, entries []model.ProductPriceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putProduct(product)
	for i := range entries {
		s.appendHistory(&entries[i])
	}
	return nil
}

// GetAllProducts returns all products ordered by barcode.
func (s *InMemory) GetAllProducts(_ context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, s.withHistory(p))
	}
	slices.SortFunc(list, func(a, b model.Product) int { return strings.Compare(a.Barcode, b.Barcode) })
	return list, nil
}

// GetProductByBarcode retrieves a product by its barcode.
func (s *InMemory) GetProductByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[barcode]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	found := s.withHistory(p)
	return &found, nil
}

// GetProductsByName matches name fragments case-insensitively.
func (s *InMemory) GetProductsByName(_ context.Context, fragment string) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(fragment)
	list := make([]model.Product, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			list = append(list, s.withHistory(p))
		}
	}
	slices.SortFunc(list, func(a, b model.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Barcode, b.Barcode)
	})
	return list, nil
}

// GetPriceHistory returns the history of a barcode, newest first.
func (s *InMemory) GetPriceHistory(_ context.Context, barcode string) ([]model.ProductPriceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.historyOf(barcode), nil
}

// SaveSale stores a copy of the sale and its items.
func (s *InMemory) SaveSale(_ context.Context, sale *model.Sale, at time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	items := make([]model.SaleItem, len(sale.Items))
	copy(items, sale.Items)
	s.sales = append(s.sales, storedSale{
		id:         id,
		clientID:   sale.ClientID,
		recordedAt: at.UTC(),
		items:      items,
	})
	return id, nil
}

// GetSalesSummary flattens the sales completed within [start, end].
func (s *InMemory) GetSalesSummary(_ context.Context, start, end time.Time) ([]model.SalesSummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]storedSale, 0)
	for _, sale := range s.sales {
		if sale.recordedAt.Before(start) || sale.recordedAt.After(end) {
			continue
		}
		matched = append(matched, sale)
	}
	slices.SortStableFunc(matched, func(a, b storedSale) int { return a.recordedAt.Compare(b.recordedAt) })

	rows := make([]model.SalesSummaryRow, 0)
	for _, sale := range matched {
		for _, item := range sale.items {
			rows = append(rows, model.SalesSummaryRow{
				SaleID:    sale.id,
				ClientID:  sale.clientID,
				Timestamp: sale.recordedAt,
				Barcode:   item.Barcode,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				Total:     item.Total(),
			})
		}
	}
	return rows, nil
}

// Ping always succeeds.
func (s *InMemory) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *InMemory) Close() error {
	return nil
}

func (s *InMemory) putProduct(product *model.Product) {
	stored := *product.Clone()
	stored.PriceHistory = nil
	s.products[product.Barcode] = stored
}

func (s *InMemory) appendHistory(entry *model.ProductPriceHistory) {
	entry.ID = s.nextID
	s.nextID++
	e := *entry
	e.RecordedAt = e.RecordedAt.UTC()
	s.history[e.Barcode] = append(s.history[e.Barcode], e)
}

// historyOf orders entries newest first, the later insert winning on equal timestamps.
func (s *InMemory) historyOf(barcode string) []model.ProductPriceHistory {
	entries := s.history[barcode]
	out := make([]model.ProductPriceHistory, len(entries))
	copy(out, entries)
	model.SortHistory(out)
	return out
}

func (s *InMemory) withHistory(p model.Product) model.Product {
	found := *p.Clone()
	found.PriceHistory = s.historyOf(p.Barcode)
	return found
}
