package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Supported GormStore dialects.
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

type productRecord struct {
	Barcode        string          `gorm:"primaryKey;size:64"`
	Name           string          `gorm:"size:255;not null;index"`
	NameLower      string          `gorm:"size:255;not null;default:'';index"`
	Description    *string         `gorm:"size:1024"`
	PurchasePrice  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Quantity       int             `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (productRecord) TableName() string { return "products" }

type historyRecord struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	ProductBarcode string          `gorm:"size:64;not null;index:idx_price_history_barcode"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	RecordedAt     time.Time       `gorm:"not null"`
}

func (historyRecord) TableName() string { return "price_history" }

type saleRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	ClientID    string    `gorm:"size:255;not null"`
	CompletedAt time.Time `gorm:"not null;index"`
}

func (saleRecord) TableName() string { return "sales" }

type saleItemRecord struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	SaleID         string          `gorm:"size:36;not null;uniqueIndex:idx_sale_items_position"`
	Position       int             `gorm:"not null;uniqueIndex:idx_sale_items_position"`
	ProductBarcode string          `gorm:"size:64;not null"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
}

func (saleItemRecord) TableName() string { return "sale_items" }

type summaryRecord struct {
	SaleID         string
	ClientID       string
	CompletedAt    time.Time
	ProductBarcode string
	Quantity       int
	UnitPrice      decimal.Decimal
}

// GormStore implements Store on top of GORM, for SQLite and MySQL databases.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenGormStore connects to the database described by dialect and dsn.
// For MySQL the DSN must contain parseTime=true.
func OpenGormStore(dialect, dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	case DialectMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm dialect %q", dialect)
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	if dialect == DialectSQLite {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("getting sql db handle: %w", err)
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	return &GormStore{db: conn}, nil
}

// Migrate creates or updates the schema.
func (g *GormStore) Migrate(ctx context.Context) error {
	err := g.db.WithContext(ctx).AutoMigrate(&productRecord{}, &historyRecord{}, &saleRecord{}, &saleItemRecord{})
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return g.backfillNameLower(ctx)
}

// backfillNameLower fills name_lower for rows written before the column existed.
// SQLite LOWER folds ASCII only, so the folding happens here.
func (g *GormStore) backfillNameLower(ctx context.Context) error {
	var records []productRecord
	err := g.db.WithContext(ctx).Where("name_lower = ? AND name <> ?", "", "").Find(&records).Error
	if err != nil {
		return fmt.Errorf("backfill name_lower: %w", err)
	}
	for _, r := range records {
		err := g.db.WithContext(ctx).Model(&productRecord{}).
			Where("barcode = ?", r.Barcode).
			Update("name_lower", strings.ToLower(r.Name)).Error
		if err != nil {
			return fmt.Errorf("backfill name_lower of %s: %w", r.Barcode, err)
		}
	}
	return nil
}

// Ping verifies the datasource is reachable.
func (g *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return perrors.Storage("ping", err)
	}
	return nil
}

// SaveProduct upserts a product keyed by barcode.
func (g *GormStore) SaveProduct(ctx context.Context, product *model.Product) error {
	if err := upsertProductRecord(g.db.WithContext(ctx), product); err != nil {
		return perrors.Storage("save product", err)
	}
	return nil
}

// SavePriceHistory appends a price history row.
func (g *GormStore) SavePriceHistory(ctx context.Context, entry *model.ProductPriceHistory) error {
	rec := toHistoryRecord(entry)
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return perrors.Storage("save price history", err)
	}
	entry.ID = rec.ID
	return nil
}

// SaveProductWithHistory upserts the product and appends the history rows in one transaction.
func (g *GormStore) SaveProductWithHistory(ctx context.Context, product *model.Product, entries []model.ProductPriceHistory) error {
	records := make([]historyRecord, len(entries))
	for i := range entries {
		records[i] = toHistoryRecord(&entries[i])
	}
	err := g.withTx(ctx, func(tx *gorm.DB) error {
		if err := upsertProductRecord(tx, product); err != nil {
			return err
		}
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return perrors.Storage("save product with history", err)
	}
	for i := range entries {
		entries[i].ID = records[i].ID
	}
	return nil
}

// GetAllProducts retrieves all products with their price history.
func (g *GormStore) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	var records []productRecord
	if err := g.db.WithContext(ctx).Order("barcode").Find(&records).Error; err != nil {
		return nil, perrors.Storage("get all products", err)
	}
	var history []historyRecord
	if err := g.db.WithContext(ctx).Order("recorded_at DESC, id DESC").Find(&history).Error; err != nil {
		return nil, perrors.Storage("get all price history", err)
	}

	products := make([]model.Product, len(records))
	for i := range records {
		products[i] = records[i].toModel()
	}
	attachHistory(products, fromHistoryRecords(history))
	return products, nil
}

// GetProductByBarcode retrieves a product by its barcode.
// Returns ErrProductNotFound if no product exists with the given barcode.
func (g *GormStore) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var rec productRecord
	err := g.db.WithContext(ctx).Where("barcode = ?", barcode).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, perrors.Storage("get product by barcode", err)
	}
	product := rec.toModel()
	if product.PriceHistory, err = g.GetPriceHistory(ctx, barcode); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByName retrieves products whose name contains fragment, ignoring case.
func (g *GormStore) GetProductsByName(ctx context.Context, fragment string) ([]model.Product, error) {
	cond := "name_lower LIKE ?"
	if g.db.Dialector.Name() == DialectSQLite {
		cond += ` ESCAPE '\'`
	}
	var records []productRecord
	err := g.db.WithContext(ctx).Where(cond, containsPattern(fragment)).Order("name, barcode").Find(&records).Error
	if err != nil {
		return nil, perrors.Storage("get products by name", err)
	}
	products := make([]model.Product, len(records))
	for i := range records {
		products[i] = records[i].toModel()
		if products[i].PriceHistory, err = g.GetPriceHistory(ctx, products[i].Barcode); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// GetPriceHistory retrieves the price history of a barcode, newest first.
func (g *GormStore) GetPriceHistory(ctx context.Context, barcode string) ([]model.ProductPriceHistory, error) {
	var records []historyRecord
	err := g.db.WithContext(ctx).
		Where("product_barcode = ?", barcode).
		Order("recorded_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, perrors.Storage("get price history", err)
	}
	return fromHistoryRecords(records), nil
}

// SaveSale inserts the sale header and its items in one transaction.
func (g *GormStore) SaveSale(ctx context.Context, sale *model.Sale, at time.Time) (uuid.UUID, error) {
	id := uuid.New()
	err := g.withTx(ctx, func(tx *gorm.DB) error {
		header := saleRecord{ID: id.String(), ClientID: sale.ClientID, CompletedAt: at.UTC()}
		if err := tx.Create(&header).Error; err != nil {
			return err
		}
		if len(sale.Items) == 0 {
			return nil
		}
		items := make([]saleItemRecord, len(sale.Items))
		for i, item := range sale.Items {
			items[i] = saleItemRecord{
				SaleID:         header.ID,
				Position:       i,
				ProductBarcode: item.Barcode,
				Quantity:       item.Quantity,
				UnitPrice:      item.UnitPrice,
			}
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return uuid.Nil, perrors.Storage("save sale", err)
	}
	return id, nil
}

// GetSalesSummary retrieves the sold items of sales completed within [start, end].
func (g *GormStore) GetSalesSummary(ctx context.Context, start, end time.Time) ([]model.SalesSummaryRow, error) {
	var records []summaryRecord
	err := g.db.WithContext(ctx).
		Table("sales AS s").
		Select("s.id AS sale_id, s.client_id, s.completed_at, si.product_barcode, si.quantity, si.unit_price").
		Joins("JOIN sale_items si ON si.sale_id = s.id").
		Where("s.completed_at BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Order("s.completed_at, s.id, si.position").
		Scan(&records).Error
	if err != nil {
		return nil, perrors.Storage("get sales summary", err)
	}

	rows := make([]model.SalesSummaryRow, 0, len(records))
	for _, r := range records {
		saleID, err := uuid.Parse(r.SaleID)
		if err != nil {
			return nil, perrors.Storage("get sales summary", err)
		}
		rows = append(rows, model.SalesSummaryRow{
			SaleID:    saleID,
			ClientID:  r.ClientID,
			Timestamp: r.CompletedAt.UTC(),
			Barcode:   r.ProductBarcode,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Total:     model.SaleItem{Quantity: r.Quantity, UnitPrice: r.UnitPrice}.Total(),
		})
	}
	return rows, nil
}

// Close shuts down the pooled connections.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withTx executes fn inside a transaction, rolling back on error/panic.
func (g *GormStore) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func upsertProductRecord(db *gorm.DB, product *model.Product) error {
	rec := productRecord{
		Barcode:        product.Barcode,
		Name:           product.Name,
		NameLower:      strings.ToLower(product.Name),
		Description:    product.Description,
		PurchasePrice:  product.PurchasePrice,
		RetailPrice:    product.RetailPrice,
		WholesalePrice: product.WholesalePrice,
		Quantity:       product.Quantity,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "name_lower", "description", "purchase_price", "retail_price", "wholesale_price", "quantity", "updated_at",
		}),
	}).Create(&rec).Error
}

func (r productRecord) toModel() model.Product {
	return model.Product{
		Barcode:        r.Barcode,
		Name:           r.Name,
		Description:    r.Description,
		PurchasePrice:  r.PurchasePrice,
		RetailPrice:    r.RetailPrice,
		WholesalePrice: r.WholesalePrice,
		Quantity:       r.Quantity,
	}
}

func toHistoryRecord(e *model.ProductPriceHistory) historyRecord {
	return historyRecord{
		ProductBarcode: e.Barcode,
		RetailPrice:    e.RetailPrice,
		WholesalePrice: e.WholesalePrice,
		RecordedAt:     e.RecordedAt.UTC(),
	}
}

func fromHistoryRecords(records []historyRecord) []model.ProductPriceHistory {
	out := make([]model.ProductPriceHistory, len(records))
	for i, r := range records {
		out[i] = model.ProductPriceHistory{
			ID:             r.ID,
			Barcode:        r.ProductBarcode,
			RetailPrice:    r.RetailPrice,
			WholesalePrice: r.WholesalePrice,
			RecordedAt:     r.RecordedAt.UTC(),
		}
	}
	return out
}
