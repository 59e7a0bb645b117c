package store

import (
	"context"
	"path/filepath"
	"testing"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenGormStore(DialectSQLite, filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGormStore_SaveSaleRollsBackHeader(t *testing.T) {
	// given
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, s.db.Migrator().DropTable(&saleItemRecord{}))
	sale := &model.Sale{
		ClientID: "C1",
		Items:    []model.SaleItem{{Barcode: "123", Name: "Milk", Quantity: 2, UnitPrice: dec("1.5")}},
	}
	// when
	id, err := s.SaveSale(ctx, sale, baseTime)
	// then
	require.ErrorIs(t, err, perrors.ErrStorage)
	assert.Equal(t, uuid.Nil, id)
	var headers int64
	require.NoError(t, s.db.Table("sales").Count(&headers).Error)
	assert.Zero(t, headers)
}

func TestGormStore_MigrateBackfillsNameLower(t *testing.T) {
	// given
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, s.SaveProduct(ctx, testProduct("1", "ÁRBOL")))
	require.NoError(t, s.db.Exec("UPDATE products SET name_lower = ''").Error)
	// when
	err := s.Migrate(ctx)
	// then
	require.NoError(t, err)
	found, err := s.GetProductsByName(ctx, "árbol")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ÁRBOL", found[0].Name)
}
