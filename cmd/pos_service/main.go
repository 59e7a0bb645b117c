// Package main runs the point-of-sale HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/gopos/internal/config"
	"github.com/abgdnv/gopos/internal/platform/bootstrap"
	"github.com/abgdnv/gopos/internal/platform/telemetry"
	"github.com/abgdnv/gopos/internal/pos/app"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, opens the store and the event publisher, then serves HTTP
// (and pprof when enabled) until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shut down tracer provider", slog.String("error", err.Error()))
			}
		}()
		logger.Info("Tracing enabled", slog.String("endpoint", cfg.Telemetry.Traces.OtlpHttp.Endpoint))
	}

	st, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", slog.String("error", err.Error()))
		} else {
			logger.Info("Store closed successfully")
		}
	}()

	publisher, closePublisher, err := bootstrap.OpenPublisher(ctx, cfg.NATS, logger)
	if err != nil {
		return fmt.Errorf("failed to open event publisher: %w", err)
	}
	defer closePublisher()

	deps, err := app.SetupDependencies(ctx, st, publisher, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	httpServer := app.SetupHttpServer(deps, cfg)
	// pprof handlers live on http.DefaultServeMux
	pprofServer := &http.Server{
		Addr:              cfg.PProf.Addr,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
	}

	g, gCtx := errgroup.WithContext(ctx)
	serve(gCtx, g, "HTTP", httpServer, cfg.Shutdown.Timeout, logger)
	if cfg.PProf.Enabled {
		serve(gCtx, g, "pprof", pprofServer, cfg.Shutdown.Timeout, logger)
	} else {
		logger.Info("Pprof server is disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}

	// Abandon a sale left open at shutdown so its reserved stock is returned.
	if deps.Sales.IsOpen() {
		logger.Warn("Cancelling sale left open at shutdown", slog.String("client_id", deps.Sales.ClientID()))
		if err := deps.Sales.CancelSale(context.Background()); err != nil {
			logger.Error("Failed to cancel open sale", slog.String("error", err.Error()))
		}
	}
	return nil
}

// serve runs srv in g and shuts it down within timeout once ctx is done.
func serve(ctx context.Context, g *errgroup.Group, name string, srv *http.Server, timeout time.Duration, logger *slog.Logger) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down "+name+" server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
