package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/abgdnv/gopos/internal/platform/web"
	"github.com/abgdnv/gopos/internal/pos/export"
)

const dateLayout = "2006-01-02"

// Export formats and datasets.
const (
	formatXLSX = "xlsx"
	formatCSV  = "csv"

	datasetAll       = "all"
	datasetInventory = "inventory"
	datasetSales     = "sales"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// SalesSummary returns the sale lines completed between ?from= and ?to=.
func (a *API) SalesSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := a.parseRange(w, r)
	if !ok {
		return
	}
	rows, err := a.sales.GetSalesSummary(r.Context(), from, to)
	if err != nil {
		a.respondFailure(w, r, err, "Failed to retrieve sales summary", "from", from, "to", to)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, rows)
}

// Export downloads the inventory and/or the sales summary as XLSX or CSV.
// CSV holds a single dataset, XLSX one sheet per dataset.
func (a *API) Export(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format := query.Get("format")
	if format == "" {
		format = formatXLSX
	}
	dataset := query.Get("dataset")
	if dataset == "" {
		dataset = datasetAll
	}

	switch {
	case format != formatXLSX && format != formatCSV:
		web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Unsupported export format: %s", format))
		return
	case dataset != datasetAll && dataset != datasetInventory && dataset != datasetSales:
		web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Unsupported dataset: %s", dataset))
		return
	case format == formatCSV && dataset == datasetAll:
		web.RespondError(w, a.logger, http.StatusBadRequest, "CSV export needs dataset=inventory or dataset=sales")
		return
	}

	var datasets []export.Dataset
	if dataset == datasetAll || dataset == datasetInventory {
		datasets = append(datasets, export.InventorySheet(a.inventory.GetInventoryTable()))
	}
	if dataset == datasetAll || dataset == datasetSales {
		from, to, ok := a.parseRange(w, r)
		if !ok {
			return
		}
		rows, err := a.sales.GetSalesSummary(r.Context(), from, to)
		if err != nil {
			a.respondFailure(w, r, err, "Failed to export sales", "from", from, "to", to)
			return
		}
		datasets = append(datasets, export.SalesSheet(rows))
	}

	var buf bytes.Buffer
	contentType := contentTypeXLSX
	var err error
	if format == formatCSV {
		contentType = contentTypeCSV
		err = export.WriteCSV(&buf, datasets[0])
	} else {
		err = export.WriteWorkbook(&buf, datasets...)
	}
	if err != nil {
		a.respondFailure(w, r, err, "Failed to build export", "format", format, "dataset", dataset)
		return
	}

	filename := fmt.Sprintf("pos-%s-%s.%s", dataset, a.now().UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		a.logger.WarnContext(r.Context(), "Failed to write export", "error", err)
	}
}

// parseRange reads the required ?from= and ?to= bounds. A date-only "to" covers the whole day.
func (a *API) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := parseBound(r.URL.Query().Get("from"), false)
	if err != nil {
		web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Invalid from parameter: %v", err))
		return time.Time{}, time.Time{}, false
	}
	to, err := parseBound(r.URL.Query().Get("to"), true)
	if err != nil {
		web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Invalid to parameter: %v", err))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseBound(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("url parameter is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD", value)
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
