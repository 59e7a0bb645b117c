package store

import (
	"context"
	"errors"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `barcode, name, description, purchase_price, retail_price, wholesale_price, quantity`

const historyColumns = `id, product_barcode, retail_price, wholesale_price, recorded_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore implements Store using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PgStore)(nil)

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
// The pool must have the decimal codec registered, see RegisterTypes.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// RegisterTypes installs the shopspring decimal codec on a new connection.
// It is meant to be used as pgxpool.Config.AfterConnect.
func RegisterTypes(_ context.Context, conn *pgx.Conn) error {
	pgxdecimal.Register(conn.TypeMap())
	return nil
}

// SaveProduct upserts a product keyed by barcode.
func (p *PgStore) SaveProduct(ctx context.Context, product *model.Product) error {
	if err := upsertProduct(ctx, p.db, product); err != nil {
		return perrors.Storage("save product", err)
	}
	return nil
}

// SavePriceHistory appends a price history row.
func (p *PgStore) SavePriceHistory(ctx context.Context, entry *model.ProductPriceHistory) error {
	if err := insertHistory(ctx, p.db, entry); err != nil {
		return perrors.Storage("save price history", err)
	}
	return nil
}

// SaveProductWithHistory upserts the product and appends the history rows in one transaction.
func (p *PgStore) SaveProductWithHistory(ctx context.Context, product *model.Product, entries []model.ProductPriceHistory) error {
	ids := make([]int64, len(entries))
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		if err := upsertProduct(ctx, tx, product); err != nil {
			return err
		}
		for i := range entries {
			e := entries[i]
			if err := insertHistory(ctx, tx, &e); err != nil {
				return err
			}
			ids[i] = e.ID
		}
		return nil
	})
	if txErr != nil {
		return perrors.Storage("save product with history", txErr)
	}
	// IDs are only published once the transaction committed.
	for i := range entries {
		entries[i].ID = ids[i]
	}
	return nil
}

// GetAllProducts retrieves all products with their price history.
func (p *PgStore) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := p.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY barcode COLLATE "C"`)
	if err != nil {
		return nil, perrors.Storage("get all products", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, perrors.Storage("get all products", err)
	}

	rows, err = p.db.Query(ctx, `SELECT `+historyColumns+` FROM price_history ORDER BY recorded_at DESC, id DESC`)
	if err != nil {
		return nil, perrors.Storage("get all price history", err)
	}
	history, err := pgx.CollectRows(rows, scanHistory)
	if err != nil {
		return nil, perrors.Storage("get all price history", err)
	}
	attachHistory(products, history)
	return products, nil
}

// GetProductByBarcode retrieves a product by its barcode.
// Returns ErrProductNotFound if no product exists with the given barcode.
func (p *PgStore) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	rows, err := p.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	if err != nil {
		return nil, perrors.Storage("get product by barcode", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, perrors.Storage("get product by barcode", err)
	}
	product.PriceHistory, err = p.GetPriceHistory(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByName retrieves products whose name contains fragment, ignoring case.
func (p *PgStore) GetProductsByName(ctx context.Context, fragment string) ([]model.Product, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(name) LIKE $1 ORDER BY name COLLATE "C", barcode`,
		containsPattern(fragment))
	if err != nil {
		return nil, perrors.Storage("get products by name", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, perrors.Storage("get products by name", err)
	}
	for i := range products {
		products[i].PriceHistory, err = p.GetPriceHistory(ctx, products[i].Barcode)
		if err != nil {
			return nil, err
		}
	}
	return products, nil
}

// GetPriceHistory retrieves the price history of a barcode, newest first.
func (p *PgStore) GetPriceHistory(ctx context.Context, barcode string) ([]model.ProductPriceHistory, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+historyColumns+` FROM price_history WHERE product_barcode = $1 ORDER BY recorded_at DESC, id DESC`,
		barcode)
	if err != nil {
		return nil, perrors.Storage("get price history", err)
	}
	history, err := pgx.CollectRows(rows, scanHistory)
	if err != nil {
		return nil, perrors.Storage("get price history", err)
	}
	return history, nil
}

// SaveSale inserts the sale header and its items in one transaction.
func (p *PgStore) SaveSale(ctx context.Context, sale *model.Sale, at time.Time) (uuid.UUID, error) {
	id := uuid.New()
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sales (id, client_id, completed_at) VALUES ($1, $2, $3)`,
			id, sale.ClientID, at.UTC()); err != nil {
			return err
		}
		for i, item := range sale.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO sale_items (sale_id, position, product_barcode, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)`,
				id, i, item.Barcode, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return uuid.Nil, perrors.Storage("save sale", txErr)
	}
	return id, nil
}

// GetSalesSummary retrieves the sold items of sales completed within [start, end].
func (p *PgStore) GetSalesSummary(ctx context.Context, start, end time.Time) ([]model.SalesSummaryRow, error) {
	rows, err := p.db.Query(ctx, `
		SELECT s.id, s.client_id, s.completed_at, si.product_barcode, si.quantity, si.unit_price
		FROM sales s
		JOIN sale_items si ON si.sale_id = s.id
		WHERE s.completed_at BETWEEN $1 AND $2
		ORDER BY s.completed_at, s.id, si.position`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, perrors.Storage("get sales summary", err)
	}
	summary, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SalesSummaryRow, error) {
		var r model.SalesSummaryRow
		err := row.Scan(&r.SaleID, &r.ClientID, &r.Timestamp, &r.Barcode, &r.Quantity, &r.UnitPrice)
		r.Timestamp = r.Timestamp.UTC()
		r.Total = model.SaleItem{Quantity: r.Quantity, UnitPrice: r.UnitPrice}.Total()
		return r, err
	})
	if err != nil {
		return nil, perrors.Storage("get sales summary", err)
	}
	return summary, nil
}

// Ping acquires a connection and checks the server responds.
func (p *PgStore) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return perrors.Storage("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PgStore) Close() error {
	p.db.Close()
	return nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func upsertProduct(ctx context.Context, q querier, product *model.Product) error {
	_, err := q.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (barcode) DO UPDATE SET
			name            = EXCLUDED.name,
			description     = EXCLUDED.description,
			purchase_price  = EXCLUDED.purchase_price,
			retail_price    = EXCLUDED.retail_price,
			wholesale_price = EXCLUDED.wholesale_price,
			quantity        = EXCLUDED.quantity,
			updated_at      = now()`,
		product.Barcode, product.Name, product.Description,
		product.PurchasePrice, product.RetailPrice, product.WholesalePrice, product.Quantity)
	return err
}

func insertHistory(ctx context.Context, q querier, entry *model.ProductPriceHistory) error {
	return q.QueryRow(ctx, `
		INSERT INTO price_history (product_barcode, retail_price, wholesale_price, recorded_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		entry.Barcode, entry.RetailPrice, entry.WholesalePrice, entry.RecordedAt.UTC()).Scan(&entry.ID)
}

func scanProduct(row pgx.CollectableRow) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.Barcode, &p.Name, &p.Description, &p.PurchasePrice, &p.RetailPrice, &p.WholesalePrice, &p.Quantity)
	return p, err
}

func scanHistory(row pgx.CollectableRow) (model.ProductPriceHistory, error) {
	var h model.ProductPriceHistory
	err := row.Scan(&h.ID, &h.Barcode, &h.RetailPrice, &h.WholesalePrice, &h.RecordedAt)
	h.RecordedAt = h.RecordedAt.UTC()
	return h, err
}

// attachHistory distributes history rows, already ordered newest first, onto their products.
func attachHistory(products []model.Product, history []model.ProductPriceHistory) {
	byBarcode := make(map[string][]model.ProductPriceHistory, len(products))
	for _, h := range history {
		byBarcode[h.Barcode] = append(byBarcode[h.Barcode], h)
	}
	for i := range products {
		products[i].PriceHistory = byBarcode[products[i].Barcode]
		if products[i].PriceHistory == nil {
			products[i].PriceHistory = []model.ProductPriceHistory{}
		}
	}
}
