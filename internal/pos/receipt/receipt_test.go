package receipt

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalized() model.FinalizedSale {
	return model.FinalizedSale{
		ID:       uuid.New(),
		ClientID: "C1",
		Items: []model.SaleItem{
			{Barcode: "123", Name: "Milk", Quantity: 3, UnitPrice: decimal.RequireFromString("1.5")},
			{Barcode: "456", Name: "Chocolate cookies", Quantity: 12, UnitPrice: decimal.RequireFromString("0.25")},
		},
		Total:       decimal.RequireFromString("7.5"),
		CompletedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestFormat(t *testing.T) {
	// given
	sale := finalized()
	// when
	ticket := Format(sale, DefaultOptions())
	// then
	expected := strings.Join([]string{
		"          NEW STORE",
		"Client: C1",
		"Date: 2024-05-01 12:30:00",
		"-----------------------------",
		"Product      Qty  Price  Total",
		"-----------------------------",
		"Milk         3   1.50   4.50",
		"Chocolate   12   0.25   3.00",
		"-----------------------------",
		"TOTAL:         $7.50",
		"",
		"Thank you for your purchase!",
		"",
		"",
	}, "\n")
	assert.Equal(t, expected, ticket)
}

func TestFormat_EmptySaleWithoutFooter(t *testing.T) {
	sale := model.FinalizedSale{ClientID: "C2", Total: decimal.Zero}
	ticket := Format(sale, Options{StoreName: "A very long store name that overflows"})

	assert.True(t, strings.HasPrefix(ticket, "A very long store name that overflows\n"))
	assert.Contains(t, ticket, "TOTAL:         $0.00\n")
	assert.NotContains(t, ticket, "Date:")
	assert.NotContains(t, ticket, "Thank you")
}

func TestTruncate_CountsRunes(t *testing.T) {
	assert.Equal(t, "Café con l", truncate("Café con leche", 10))
	assert.Equal(t, "Té", truncate("Té", 10))
}

func TestWriterPrinter_Print(t *testing.T) {
	// given
	var buf bytes.Buffer
	p := NewWriterPrinter(&buf, DefaultOptions())
	// when
	err := p.Print(context.Background(), finalized())
	// then
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Client: C1")
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("paper jam") }

func TestWriterPrinter_PrintFailure(t *testing.T) {
	p := NewWriterPrinter(brokenWriter{}, DefaultOptions())
	err := p.Print(context.Background(), finalized())
	require.ErrorContains(t, err, "paper jam")
}

func TestWriterPrinter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := NewWriterPrinter(&buf, DefaultOptions()).Print(ctx, finalized())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestFilePrinter_AppendsTickets(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "receipts.txt")
	p := NewFilePrinter(path, DefaultOptions())
	// when
	require.NoError(t, p.Print(context.Background(), finalized()))
	require.NoError(t, p.Print(context.Background(), finalized()))
	// then
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "Client: C1"))
}

func TestFilePrinter_MissingDirectory(t *testing.T) {
	p := NewFilePrinter(filepath.Join(t.TempDir(), "missing", "receipts.txt"), DefaultOptions())
	err := p.Print(context.Background(), finalized())
	require.Error(t, err)
}

func TestNewPrinter(t *testing.T) {
	assert.IsType(t, NopPrinter{}, NewPrinter(false, "stdout", DefaultOptions()))
	assert.IsType(t, &WriterPrinter{}, NewPrinter(true, "stdout", DefaultOptions()))
	assert.IsType(t, &WriterPrinter{}, NewPrinter(true, "", DefaultOptions()))
	assert.IsType(t, &FilePrinter{}, NewPrinter(true, "/tmp/receipts.txt", DefaultOptions()))
	assert.NoError(t, NopPrinter{}.Print(context.Background(), finalized()))
}
