package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/abgdnv/gopos/internal/platform/logger"
	"github.com/abgdnv/gopos/internal/platform/web"
	"github.com/abgdnv/gopos/internal/pos/events"
	"github.com/go-chi/chi/v5"
)

// withSaleLogContext tags every log record of the request with the client of the open sale.
func (a *API) withSaleLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.sales.IsOpen() {
			r = r.WithContext(logger.AppendCtx(r.Context(), slog.String("open_sale_client", a.sales.ClientID())))
		}
		next.ServeHTTP(w, r)
	})
}

// GetSale returns the state of the till.
func (a *API) GetSale(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, a.logger, http.StatusOK, a.saleState())
}

// StartSale opens a sale for a client.
func (a *API) StartSale(w http.ResponseWriter, r *http.Request) {
	var dto StartSaleDto
	if !web.DecodeAndValidate(w, r, a.logger, a.validate, &dto) {
		return
	}
	if err := a.sales.StartSale(r.Context(), dto.ClientID); err != nil {
		a.respondFailure(w, r, err, "Failed to start sale", "client_id", dto.ClientID)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusCreated, a.saleState())
}

// CancelSale drops the open sale and restores its stock.
func (a *API) CancelSale(w http.ResponseWriter, r *http.Request) {
	if err := a.sales.CancelSale(r.Context()); err != nil {
		a.respondFailure(w, r, err, "Failed to cancel sale")
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, a.saleState())
}

// AddItem adds a line to the open sale.
func (a *API) AddItem(w http.ResponseWriter, r *http.Request) {
	var dto AddItemDto
	if !web.DecodeAndValidate(w, r, a.logger, a.validate, &dto) {
		return
	}
	if dto.UnitPrice == nil {
		product, err := a.inventory.GetProductByBarcode(r.Context(), dto.Barcode)
		if err != nil {
			a.respondFailure(w, r, err, "Failed to add item", "barcode", dto.Barcode)
			return
		}
		dto.UnitPrice = &product.RetailPrice
	}
	if err := a.sales.AddItem(r.Context(), dto.Barcode, dto.Quantity, *dto.UnitPrice); err != nil {
		a.respondFailure(w, r, err, "Failed to add item", "barcode", dto.Barcode, "quantity", dto.Quantity)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, a.saleState())
}

// RemoveItem removes the line at {index} from the open sale.
func (a *API) RemoveItem(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "index")
	index, err := strconv.Atoi(value)
	if err != nil {
		web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Invalid item index: %s", value))
		return
	}
	if err := a.sales.RemoveItem(r.Context(), index); err != nil {
		a.respondFailure(w, r, err, "Failed to remove item", "index", index)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, a.saleState())
}

// FinalizeSale persists the open sale, announces it and prints its receipt.
// A failed publish or print does not undo the sale. Print failures are reported in receipt_error.
func (a *API) FinalizeSale(w http.ResponseWriter, r *http.Request) {
	done, err := a.sales.FinalizeSale(r.Context())
	if err != nil {
		a.respondFailure(w, r, err, "Failed to finalize sale")
		return
	}

	units := 0
	for _, item := range done.Items {
		units += item.Quantity
	}
	total, _ := done.Total.Float64()
	a.metrics.ObserveSale(units, total)

	if err := a.publisher.Publish(r.Context(), events.NewSaleFinalized(r.Context(), done)); err != nil {
		a.logger.ErrorContext(r.Context(), "Failed to publish sale finalized event", "sale_id", done.ID, "error", err)
	}

	dto := toFinalizedDto(done)
	if err := a.printer.Print(r.Context(), done); err != nil {
		a.logger.ErrorContext(r.Context(), "Failed to print receipt", "sale_id", done.ID, "error", err)
		dto.ReceiptError = err.Error()
	}
	web.RespondJSON(w, a.logger, http.StatusOK, dto)
}

func (a *API) saleState() SaleStateDto {
	return SaleStateDto{
		Open:     a.sales.IsOpen(),
		ClientID: a.sales.ClientID(),
		Items:    toSaleItemsDto(a.sales.GetItems()),
		Total:    a.sales.GetTotal(),
	}
}
