// Package sale drives the single in-progress sale of the till.
package sale

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/abgdnv/gopos/internal/pos/store"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/abgdnv/gopos/internal/pos/sale"

// Inventory is the stock keeper used by the sale manager.
type Inventory interface {
	Reserve(ctx context.Context, barcode string, qty int) (model.Product, error)
	Release(ctx context.Context, barcode string, qty int) error
}

// Manager is a two-state machine: Idle (current == nil) or Open.
type Manager struct {
	mu        sync.Mutex
	inventory Inventory
	store     store.Store
	logger    *slog.Logger
	now       func() time.Time
	current   *model.Sale
}

// NewManager creates an idle sale manager.
func NewManager(inventory Inventory, st store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		inventory: inventory,
		store:     st,
		logger:    logger.With("component", "sale"),
		now:       time.Now,
	}
}

// WithClock replaces the clock used to timestamp finalized sales.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// StartSale opens a new sale for clientID.
// Returns ErrInvalidClient for a blank id and ErrSaleInProgress while another sale is open.
func (m *Manager) StartSale(ctx context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(clientID) == "" {
		return perrors.ErrInvalidClient
	}
	if m.current != nil {
		m.logger.WarnContext(ctx, "sale already open", "client_id", m.current.ClientID)
		return fmt.Errorf("client %s: %w", m.current.ClientID, perrors.ErrSaleInProgress)
	}

	m.current = &model.Sale{ClientID: clientID, Items: []model.SaleItem{}}
	m.logger.InfoContext(ctx, "sale started", "client_id", clientID)
	return nil
}

// AddItem reserves quantity units of the product and appends a line at unitPrice.
// Returns ErrNoOpenSale, ErrInvalidQuantity, ErrInvalidPrice, ErrProductNotFound,
// ErrInsufficientStock or ErrStorage; on error the sale is unchanged.
func (m *Manager) AddItem(ctx context.Context, barcode string, quantity int, unitPrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return perrors.ErrNoOpenSale
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity %d: %w", quantity, perrors.ErrInvalidQuantity)
	}
	if unitPrice.IsNegative() {
		return fmt.Errorf("unit price %s: %w", unitPrice, perrors.ErrInvalidPrice)
	}

	product, err := m.inventory.Reserve(ctx, barcode, quantity)
	if err != nil {
		return err
	}

	m.current.AddItem(model.SaleItem{
		Barcode:   barcode,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	m.logger.InfoContext(ctx, "item added", "barcode", barcode, "quantity", quantity, "unit_price", unitPrice.String())
	return nil
}

// RemoveItem drops the line at index and returns its stock. Later lines shift down.
// Returns ErrNoOpenSale, ErrIndexOutOfRange or ErrStorage.
func (m *Manager) RemoveItem(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return perrors.ErrNoOpenSale
	}
	if index < 0 || index >= len(m.current.Items) {
		return fmt.Errorf("index %d of %d: %w", index, len(m.current.Items), perrors.ErrIndexOutOfRange)
	}

	item := m.current.Items[index]
	if err := m.inventory.Release(ctx, item.Barcode, item.Quantity); err != nil {
		return err
	}
	m.current.RemoveItem(index)
	m.logger.InfoContext(ctx, "item removed", "barcode", item.Barcode, "quantity", item.Quantity)
	return nil
}

// CancelSale returns every reserved unit and closes the sale without a record.
// It is a no-op when no sale is open. If a release fails the sale stays open
// holding only the lines not yet released, so a retry finishes the job.
func (m *Manager) CancelSale(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}

	for len(m.current.Items) > 0 {
		item := m.current.Items[0]
		if err := m.inventory.Release(ctx, item.Barcode, item.Quantity); err != nil {
			m.logger.ErrorContext(ctx, "failed to cancel sale", "client_id", m.current.ClientID, "error", err)
			return err
		}
		m.current.RemoveItem(0)
	}

	m.logger.InfoContext(ctx, "sale cancelled", "client_id", m.current.ClientID)
	m.current = nil
	return nil
}

// FinalizeSale persists the open sale and closes it.
// Returns ErrNoOpenSale or ErrStorage; on error the sale stays open.
func (m *Manager) FinalizeSale(ctx context.Context) (model.FinalizedSale, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "sale.finalize")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		span.SetStatus(codes.Error, perrors.ErrNoOpenSale.Error())
		return model.FinalizedSale{}, perrors.ErrNoOpenSale
	}
	span.SetAttributes(
		attribute.String("pos.client_id", m.current.ClientID),
		attribute.Int("pos.sale.items", len(m.current.Items)),
	)

	// Millisecond is the coarsest precision among the store drivers.
	completedAt := m.now().UTC().Truncate(time.Millisecond)
	id, err := m.store.SaveSale(ctx, m.current, completedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save sale failed")
		m.logger.ErrorContext(ctx, "failed to save sale", "client_id", m.current.ClientID, "error", err)
		return model.FinalizedSale{}, err
	}
	span.SetAttributes(attribute.String("pos.sale.id", id.String()))

	done := model.FinalizedSale{
		ID:          id,
		ClientID:    m.current.ClientID,
		Items:       m.current.Items,
		Total:       m.current.Total(),
		CompletedAt: completedAt,
	}
	m.current = nil
	m.logger.InfoContext(ctx, "sale finalized", "sale_id", id, "client_id", done.ClientID,
		"items", len(done.Items), "total", done.Total.String())
	return done, nil
}

// GetItems returns a copy of the open sale lines, or an empty slice when idle.
func (m *Manager) GetItems() []model.SaleItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return []model.SaleItem{}
	}
	items := make([]model.SaleItem, len(m.current.Items))
	copy(items, m.current.Items)
	return items
}

// GetTotal returns the total of the open sale, zero when idle.
func (m *Manager) GetTotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return decimal.Zero
	}
	return m.current.Total()
}

// ClientID returns the client of the open sale, empty when idle.
func (m *Manager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ""
	}
	return m.current.ClientID
}

// IsOpen reports whether a sale is in progress.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current != nil
}

// GetSalesSummary returns the persisted lines of sales completed within [start, end].
// Returns ErrInvalidRange when end is before start.
func (m *Manager) GetSalesSummary(ctx context.Context, start, end time.Time) ([]model.SalesSummaryRow, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%s is before %s: %w", end.Format(time.RFC3339), start.Format(time.RFC3339), perrors.ErrInvalidRange)
	}
	return m.store.GetSalesSummary(ctx, start, end)
}
