package handler

import "github.com/go-chi/chi/v5"

// Routes registers the point-of-sale endpoints on r.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", a.ListProducts)
			r.Post("/", a.CreateProduct)

			r.Route("/{barcode}", func(r chi.Router) {
				r.Get("/", a.GetProduct)
				r.Patch("/", a.UpdateProduct)
				r.Post("/refill", a.RefillProduct)
				r.Get("/history", a.PriceHistory)
			})
		})

		r.Route("/sale", func(r chi.Router) {
			r.Use(a.withSaleLogContext)
			r.Get("/", a.GetSale)
			r.Post("/", a.StartSale)
			r.Delete("/", a.CancelSale)
			r.Post("/items", a.AddItem)
			r.Delete("/items/{index}", a.RemoveItem)
			r.Post("/finalize", a.FinalizeSale)
		})

		r.Get("/sales/summary", a.SalesSummary)
		r.Get("/export", a.Export)
	})

	r.Get("/healthz", a.HealthCheck)
}
