// Package export writes inventory and sales data as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	InventorySheetName = "Inventory"
	SalesSheetName     = "Sales"
)

// Dataset is a named table of string cells with a header row.
type Dataset struct {
	Name   string
	Header []string
	Rows   [][]string
}

// InventorySheet tabulates the inventory rows.
func InventorySheet(rows []model.InventoryRow) Dataset {
	ds := Dataset{
		Name:   InventorySheetName,
		Header: []string{"Barcode", "Name", "Description", "Purchase price", "Retail price", "Wholesale price", "Quantity"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, []string{
			r.Barcode,
			r.Name,
			r.Description,
			r.PurchasePrice.StringFixed(2),
			r.RetailPrice.StringFixed(2),
			r.WholesalePrice.StringFixed(2),
			strconv.Itoa(r.Quantity),
		})
	}
	return ds
}

// SalesSheet tabulates the sales summary rows.
func SalesSheet(rows []model.SalesSummaryRow) Dataset {
	ds := Dataset{
		Name:   SalesSheetName,
		Header: []string{"Sale ID", "Client ID", "Timestamp", "Product barcode", "Quantity", "Unit price", "Total"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, []string{
			r.SaleID.String(),
			r.ClientID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Barcode,
			strconv.Itoa(r.Quantity),
			r.UnitPrice.StringFixed(2),
			r.Total.StringFixed(2),
		})
	}
	return ds
}

// WriteWorkbook writes an XLSX workbook with one sheet per dataset, in order.
func WriteWorkbook(w io.Writer, datasets ...Dataset) error {
	if len(datasets) == 0 {
		return fmt.Errorf("workbook needs at least one dataset")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	for i, ds := range datasets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, ds.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", ds.Name, err)
			}
		} else if _, err := f.NewSheet(ds.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", ds.Name, err)
		}
		if err := writeSheet(f, ds); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, ds Dataset) error {
	header := make([]any, len(ds.Header))
	for i, h := range ds.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(ds.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", ds.Name, err)
	}
	for i, row := range ds.Rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ds.Name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", ds.Name, i+1, err)
		}
	}
	return nil
}

// WriteCSV writes a single dataset as CSV, header first.
func WriteCSV(w io.Writer, ds Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}
