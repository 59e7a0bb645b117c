package handler

import (
	"net/http"

	"github.com/abgdnv/gopos/internal/platform/web"
	"github.com/go-chi/chi/v5"
)

// ListProducts returns the inventory table, or the products whose name contains ?name=.
func (a *API) ListProducts(w http.ResponseWriter, r *http.Request) {
	if fragment, ok := r.URL.Query()["name"]; ok {
		products, err := a.inventory.GetProductsByName(r.Context(), fragment[0])
		if err != nil {
			a.respondFailure(w, r, err, "Failed to search products", "name", fragment[0])
			return
		}
		found := make([]ProductDto, 0, len(products))
		for i := range products {
			found = append(found, toProductDto(&products[i]))
		}
		a.logger.DebugContext(r.Context(), "Products found by name", "name", fragment[0], "count", len(found))
		web.RespondJSON(w, a.logger, http.StatusOK, found)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, a.inventory.GetInventoryTable())
}

// CreateProduct adds a new product to the inventory.
func (a *API) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var dto ProductCreateDto
	if !web.DecodeAndValidate(w, r, a.logger, a.validate, &dto) {
		return
	}
	if err := a.inventory.AddProduct(r.Context(), dto.toModel()); err != nil {
		a.respondFailure(w, r, err, "Failed to create product", "barcode", dto.Barcode)
		return
	}
	a.respondRow(w, r, http.StatusCreated, dto.Barcode)
}

// GetProduct returns a product with its price history.
func (a *API) GetProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	product, err := a.inventory.GetProductByBarcode(r.Context(), barcode)
	if err != nil {
		a.respondFailure(w, r, err, "Failed to retrieve product", "barcode", barcode)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, toProductDto(product))
}

// UpdateProduct edits the supplied fields of a product.
func (a *API) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	var dto ProductUpdateDto
	if !web.DecodeAndValidate(w, r, a.logger, a.validate, &dto) {
		return
	}
	if err := a.inventory.EditProduct(r.Context(), barcode, dto.toModel()); err != nil {
		a.respondFailure(w, r, err, "Failed to update product", "barcode", barcode)
		return
	}
	a.respondRow(w, r, http.StatusOK, barcode)
}

// RefillProduct adds stock to a product.
func (a *API) RefillProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	var dto RefillDto
	if !web.DecodeAndValidate(w, r, a.logger, a.validate, &dto) {
		return
	}
	if err := a.inventory.RefillProduct(r.Context(), barcode, *dto.Amount); err != nil {
		a.respondFailure(w, r, err, "Failed to refill product", "barcode", barcode)
		return
	}
	a.respondRow(w, r, http.StatusOK, barcode)
}

// PriceHistory returns the price snapshots of a product, newest first.
func (a *API) PriceHistory(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	history, err := a.inventory.GetPriceHistory(r.Context(), barcode)
	if err != nil {
		a.respondFailure(w, r, err, "Failed to retrieve price history", "barcode", barcode)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, toHistoryDto(history))
}

// respondRow re-reads the inventory row after a mutation.
func (a *API) respondRow(w http.ResponseWriter, r *http.Request, status int, barcode string) {
	row, err := a.inventory.Row(barcode)
	if err != nil {
		a.respondFailure(w, r, err, "Failed to read product", "barcode", barcode)
		return
	}
	web.RespondJSON(w, a.logger, status, row)
}
