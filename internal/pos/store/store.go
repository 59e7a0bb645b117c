// Package store provides an interface for point-of-sale storage operations.
package store

import (
	"context"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
)

// Store is an interface for product, price history and sale storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
// Driver failures are returned wrapped in ErrStorage; every mutating call either fully commits or fully fails.
type Store interface {
	// SaveProduct inserts the product or replaces every field of the existing row with the same barcode.
	SaveProduct(ctx context.Context, product *model.Product) error

	// SavePriceHistory appends a history entry and sets its generated ID.
	SavePriceHistory(ctx context.Context, entry *model.ProductPriceHistory) error

	// SaveProductWithHistory upserts the product and appends the entries in one transaction.
	// Generated IDs are written back into entries.
	SaveProductWithHistory(ctx context.Context, product *model.Product, entries []model.ProductPriceHistory) error

	// GetAllProducts returns every product with its price history attached, newest entry first.
	GetAllProducts(ctx context.Context) ([]model.Product, error)

	// GetProductByBarcode retrieves a single product with its price history.
	// Returns ErrProductNotFound if no product exists with the given barcode.
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)

	// GetProductsByName returns the products whose name contains fragment, ignoring case.
	// Returns an empty slice if nothing matches.
	GetProductsByName(ctx context.Context, fragment string) ([]model.Product, error)

	// GetPriceHistory returns the history of a barcode, newest entry first.
	GetPriceHistory(ctx context.Context, barcode string) ([]model.ProductPriceHistory, error)

	// SaveSale persists the sale header and all its items atomically and returns the new sale ID.
	SaveSale(ctx context.Context, sale *model.Sale, at time.Time) (uuid.UUID, error)

	// GetSalesSummary returns one row per sold item for sales completed within [start, end],
	// ordered by sale time ascending.
	GetSalesSummary(ctx context.Context, start, end time.Time) ([]model.SalesSummaryRow, error)

	// Ping verifies the datasource is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
