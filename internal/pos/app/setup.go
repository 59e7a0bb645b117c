// Package app wires the point-of-sale service together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/gopos/internal/config"
	"github.com/abgdnv/gopos/internal/platform/messaging"
	"github.com/abgdnv/gopos/internal/platform/metrics"
	"github.com/abgdnv/gopos/internal/platform/web"
	"github.com/abgdnv/gopos/internal/pos/handler"
	"github.com/abgdnv/gopos/internal/pos/inventory"
	"github.com/abgdnv/gopos/internal/pos/receipt"
	"github.com/abgdnv/gopos/internal/pos/sale"
	"github.com/abgdnv/gopos/internal/pos/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Dependencies are the wired components of the service. A nil Gatherer disables
// /metrics; Checks back /readyz, keyed by dependency name.
type Dependencies struct {
	Inventory *inventory.Manager
	Sales     *sale.Manager
	Printer   receipt.Printer
	Publisher messaging.Publisher
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Checks    map[string]Check
	Logger    *slog.Logger
}

// SetupDependencies loads the inventory from st and builds the managers.
// Finalized sales are announced through publisher; nil drops them.
func SetupDependencies(ctx context.Context, st store.Store, publisher messaging.Publisher, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	inv, err := inventory.NewManager(ctx, st, logger)
	if err != nil {
		return nil, err
	}

	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	deps := &Dependencies{
		Inventory: inv,
		Sales:     sale.NewManager(inv, st, logger),
		Printer:   newPrinter(cfg.Receipt),
		Publisher: publisher,
		Checks:    map[string]Check{"store": st.Ping},
		Metrics:   metrics.New(nil),
		Logger:    logger,
	}
	if p, ok := publisher.(pinger); ok {
		deps.Checks["nats"] = p.Ping
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		deps.Metrics = metrics.New(reg)
		deps.Gatherer = reg
	}
	return deps, nil
}

func newPrinter(cfg config.ReceiptConfig) receipt.Printer {
	printer := receipt.NewPrinter(cfg.Enabled, cfg.Output, receipt.Options{
		StoreName: cfg.StoreName,
		Footer:    cfg.Footer,
	})
	if !cfg.Enabled || cfg.Breaker.ConsecutiveFailures == 0 {
		return printer
	}
	return receipt.NewBreakerPrinter(printer, receipt.BreakerSettings{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
	})
}

// SetupHttpHandler initializes the routes and middleware of the service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	api := handler.NewAPI(deps.Inventory, deps.Sales, deps.Printer, deps.Publisher, deps.Metrics, deps.Logger)

	mux := chi.NewRouter()
	mux.Use(otelhttp.NewMiddleware("pos-service"))
	mux.Use(middleware.RequestID)
	mux.Use(web.RequestIDEcho)
	mux.Use(web.StructuredLogger(deps.Logger))
	mux.Use(web.Recoverer(deps.Logger))
	mux.Use(deps.Metrics.Middleware)

	api.Routes(mux)
	mux.Get("/livez", Live)
	mux.Get("/readyz", Ready(deps.Checks, deps.Logger))
	if deps.Gatherer != nil {
		mux.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	return mux
}

// SetupHttpServer creates and configures an HTTP server for the service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPServer.Port),
		Handler:           mux,
		ReadTimeout:       cfg.HTTPServer.Timeout.Read,
		WriteTimeout:      cfg.HTTPServer.Timeout.Write,
		IdleTimeout:       cfg.HTTPServer.Timeout.Idle,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
		MaxHeaderBytes:    cfg.HTTPServer.MaxHeaderBytes,
	}
	return server
}
