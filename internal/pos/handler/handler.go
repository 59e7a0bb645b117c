// Package handler provides the HTTP handlers of the point-of-sale service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/gopos/internal/platform/messaging"
	"github.com/abgdnv/gopos/internal/platform/metrics"
	"github.com/abgdnv/gopos/internal/platform/web"
	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/abgdnv/gopos/internal/pos/receipt"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Inventory is the product catalogue and stock keeper behind the product routes.
type Inventory interface {
	AddProduct(ctx context.Context, product model.Product) error
	RefillProduct(ctx context.Context, barcode string, amount int) error
	EditProduct(ctx context.Context, barcode string, update model.ProductUpdate) error
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	GetProductsByName(ctx context.Context, fragment string) ([]model.Product, error)
	GetPriceHistory(ctx context.Context, barcode string) ([]model.ProductPriceHistory, error)
	GetInventoryTable() []model.InventoryRow
	Row(barcode string) (model.InventoryRow, error)
}

// Sales is the till behind the sale routes.
type Sales interface {
	StartSale(ctx context.Context, clientID string) error
	AddItem(ctx context.Context, barcode string, quantity int, unitPrice decimal.Decimal) error
	RemoveItem(ctx context.Context, index int) error
	CancelSale(ctx context.Context) error
	FinalizeSale(ctx context.Context) (model.FinalizedSale, error)
	GetItems() []model.SaleItem
	GetTotal() decimal.Decimal
	ClientID() string
	IsOpen() bool
	GetSalesSummary(ctx context.Context, start, end time.Time) ([]model.SalesSummaryRow, error)
}

// API holds the HTTP handlers.
type API struct {
	inventory Inventory
	sales     Sales
	printer   receipt.Printer
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewAPI creates the handlers. A nil printer disables receipts, a nil publisher
// drops sale events and nil metrics records nothing.
func NewAPI(inventory Inventory, sales Sales, printer receipt.Printer, publisher messaging.Publisher, m *metrics.Metrics, logger *slog.Logger) *API {
	if printer == nil {
		printer = receipt.NopPrinter{}
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &API{
		inventory: inventory,
		sales:     sales,
		printer:   printer,
		publisher: publisher,
		metrics:   m,
		validate:  web.NewValidator(),
		logger:    logger.With("component", "api"),
		now:       time.Now,
	}
}

// HealthCheck is a simple health check endpoint.
func (a *API) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, a.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an error kind of the core to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, perrors.ErrProductNotFound),
		errors.Is(err, perrors.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, perrors.ErrDuplicateBarcode),
		errors.Is(err, perrors.ErrSaleInProgress),
		errors.Is(err, perrors.ErrNoOpenSale),
		errors.Is(err, perrors.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, perrors.ErrInvalidProduct),
		errors.Is(err, perrors.ErrInvalidAmount),
		errors.Is(err, perrors.ErrInvalidClient),
		errors.Is(err, perrors.ErrInvalidQuantity),
		errors.Is(err, perrors.ErrInvalidPrice),
		errors.Is(err, perrors.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, perrors.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure reports err to the client. Client errors carry the error text,
// server errors only failMsg.
func (a *API) respondFailure(w http.ResponseWriter, r *http.Request, err error, failMsg string, attrs ...any) {
	status := statusFor(err)
	attrs = append(attrs, "error", err)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), failMsg, attrs...)
		web.RespondError(w, a.logger, status, failMsg)
		return
	}
	a.logger.WarnContext(r.Context(), failMsg, attrs...)
	web.RespondError(w, a.logger, status, err.Error())
}
