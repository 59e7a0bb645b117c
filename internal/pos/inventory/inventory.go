// Package inventory keeps the in-memory product registry in step with the store.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/abgdnv/gopos/internal/pos/store"
)

// Manager owns the cached products. Every mutation is applied to a copy,
// persisted, and only then committed to memory.
type Manager struct {
	mu       sync.Mutex
	store    store.Store
	logger   *slog.Logger
	now      func() time.Time
	products map[string]*model.Product
	order    []string // insertion order of barcodes
}

// NewManager loads every stored product into memory.
func NewManager(ctx context.Context, st store.Store, logger *slog.Logger) (*Manager, error) {
	products, err := st.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	m := &Manager{
		store:    st,
		logger:   logger.With("component", "inventory"),
		now:      time.Now,
		products: make(map[string]*model.Product, len(products)),
		order:    make([]string, 0, len(products)),
	}
	for i := range products {
		m.products[products[i].Barcode] = &products[i]
		m.order = append(m.order, products[i].Barcode)
	}
	m.logger.InfoContext(ctx, "inventory loaded", "products", len(products))
	return m, nil
}

// WithClock replaces the clock used to timestamp price history entries.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// AddProduct registers a new product together with any history it already carries.
// Returns ErrInvalidProduct, ErrDuplicateBarcode or ErrStorage.
func (m *Manager) AddProduct(ctx context.Context, product model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := product.Validate(); err != nil {
		m.logger.WarnContext(ctx, "product rejected", "barcode", product.Barcode, "error", err)
		return err
	}
	if _, ok := m.products[product.Barcode]; ok {
		m.logger.WarnContext(ctx, "duplicate barcode", "barcode", product.Barcode)
		return fmt.Errorf("barcode %s: %w", product.Barcode, perrors.ErrDuplicateBarcode)
	}

	added := product.Clone()
	var err error
	if len(added.PriceHistory) > 0 {
		err = m.store.SaveProductWithHistory(ctx, added, added.PriceHistory)
	} else {
		added.PriceHistory = []model.ProductPriceHistory{}
		err = m.store.SaveProduct(ctx, added)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to save product", "barcode", product.Barcode, "error", err)
		return err
	}

	model.SortHistory(added.PriceHistory)
	m.products[added.Barcode] = added
	m.order = append(m.order, added.Barcode)
	m.logger.InfoContext(ctx, "product added", "barcode", added.Barcode, "quantity", added.Quantity)
	return nil
}

// RefillProduct increases the stock of a product by amount. Zero is accepted.
// Returns ErrProductNotFound, ErrInvalidAmount or ErrStorage.
func (m *Manager) RefillProduct(ctx context.Context, barcode string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.products[barcode]
	if !ok {
		return notFound(barcode)
	}
	if amount < 0 {
		m.logger.WarnContext(ctx, "refill rejected", "barcode", barcode, "amount", amount)
		return fmt.Errorf("amount %d: %w", amount, perrors.ErrInvalidAmount)
	}

	refilled := current.Clone()
	refilled.Quantity += amount
	if err := m.store.SaveProduct(ctx, refilled); err != nil {
		m.logger.ErrorContext(ctx, "failed to refill product", "barcode", barcode, "error", err)
		return err
	}

	m.products[barcode] = refilled
	m.logger.InfoContext(ctx, "product refilled", "barcode", barcode, "amount", amount, "quantity", refilled.Quantity)
	return nil
}

// EditProduct applies a partial update. When the retail or wholesale price value
// changes, a history entry with the new prices is recorded in the same write.
// Returns ErrProductNotFound, ErrInvalidProduct or ErrStorage.
func (m *Manager) EditProduct(ctx context.Context, barcode string, update model.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.products[barcode]
	if !ok {
		return notFound(barcode)
	}
	if update.IsEmpty() {
		return nil
	}

	edited := current.Clone()
	priceChanged := edited.Apply(update)
	if err := edited.Validate(); err != nil {
		m.logger.WarnContext(ctx, "edit rejected", "barcode", barcode, "error", err)
		return err
	}

	var err error
	if priceChanged {
		entries := []model.ProductPriceHistory{edited.Snapshot(m.now())}
		if err = m.store.SaveProductWithHistory(ctx, edited, entries); err == nil {
			edited.PriceHistory = append(entries, edited.PriceHistory...)
		}
	} else {
		err = m.store.SaveProduct(ctx, edited)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to edit product", "barcode", barcode, "error", err)
		return err
	}

	m.products[barcode] = edited
	m.logger.InfoContext(ctx, "product edited", "barcode", barcode, "price_changed", priceChanged)
	return nil
}

// GetProductByBarcode reads a product, with its history, from the store.
func (m *Manager) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	return m.store.GetProductByBarcode(ctx, barcode)
}

// GetProductsByName searches the store by a case-insensitive name fragment.
func (m *Manager) GetProductsByName(ctx context.Context, fragment string) ([]model.Product, error) {
	return m.store.GetProductsByName(ctx, fragment)
}

// GetPriceHistory reads the history of a known product, newest first.
func (m *Manager) GetPriceHistory(ctx context.Context, barcode string) ([]model.ProductPriceHistory, error) {
	m.mu.Lock()
	_, ok := m.products[barcode]
	m.mu.Unlock()
	if !ok {
		return nil, notFound(barcode)
	}
	return m.store.GetPriceHistory(ctx, barcode)
}

// GetInventoryTable returns a snapshot of every cached product in insertion order.
func (m *Manager) GetInventoryTable() []model.InventoryRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]model.InventoryRow, 0, len(m.order))
	for _, barcode := range m.order {
		rows = append(rows, m.products[barcode].Row())
	}
	return rows
}

// Row returns the cached row of a single product.
func (m *Manager) Row(barcode string) (model.InventoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[barcode]
	if !ok {
		return model.InventoryRow{}, notFound(barcode)
	}
	return p.Row(), nil
}

// Reserve takes qty units out of stock and returns the product as it was reserved.
// Returns ErrInvalidQuantity, ErrProductNotFound, ErrInsufficientStock or ErrStorage.
func (m *Manager) Reserve(ctx context.Context, barcode string, qty int) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qty <= 0 {
		return model.Product{}, fmt.Errorf("quantity %d: %w", qty, perrors.ErrInvalidQuantity)
	}
	current, ok := m.products[barcode]
	if !ok {
		return model.Product{}, notFound(barcode)
	}
	if qty > current.Quantity {
		m.logger.WarnContext(ctx, "insufficient stock", "barcode", barcode, "requested", qty, "available", current.Quantity)
		return model.Product{}, fmt.Errorf("product %s. Available: %d, Requested: %d: %w",
			barcode, current.Quantity, qty, perrors.ErrInsufficientStock)
	}

	reserved := current.Clone()
	reserved.Quantity -= qty
	if err := m.store.SaveProduct(ctx, reserved); err != nil {
		m.logger.ErrorContext(ctx, "failed to reserve stock", "barcode", barcode, "error", err)
		return model.Product{}, err
	}

	m.products[barcode] = reserved
	m.logger.DebugContext(ctx, "stock reserved", "barcode", barcode, "quantity", qty, "left", reserved.Quantity)
	return *reserved.Clone(), nil
}

// Release puts qty units back into stock.
// Returns ErrInvalidQuantity, ErrProductNotFound or ErrStorage.
func (m *Manager) Release(ctx context.Context, barcode string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qty <= 0 {
		return fmt.Errorf("quantity %d: %w", qty, perrors.ErrInvalidQuantity)
	}
	current, ok := m.products[barcode]
	if !ok {
		return notFound(barcode)
	}

	released := current.Clone()
	released.Quantity += qty
	if err := m.store.SaveProduct(ctx, released); err != nil {
		m.logger.ErrorContext(ctx, "failed to release stock", "barcode", barcode, "error", err)
		return err
	}

	m.products[barcode] = released
	m.logger.DebugContext(ctx, "stock released", "barcode", barcode, "quantity", qty, "left", released.Quantity)
	return nil
}

func notFound(barcode string) error {
	return fmt.Errorf("barcode %s: %w", barcode, perrors.ErrProductNotFound)
}
