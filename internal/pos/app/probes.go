package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/abgdnv/gopos/internal/platform/web"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// Check reports whether a dependency can serve requests.
type Check func(ctx context.Context) error

// pinger is implemented by publishers that can verify their broker connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Live answers as long as the process serves HTTP.
func Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Ready runs every check concurrently and answers 503 when any of them fails.
func Ready(checks map[string]Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var mu sync.Mutex
		results := make(map[string]string, len(checks))
		var eg errgroup.Group
		for name, check := range checks {
			eg.Go(func() error {
				err := check(ctx)
				status := "ok"
				if err != nil {
					status = err.Error()
				}
				mu.Lock()
				results[name] = status
				mu.Unlock()
				return err
			})
		}

		if err := eg.Wait(); err != nil {
			logger.ErrorContext(r.Context(), "Readiness probe failed: dependency is not ready", "error", err)
			web.RespondJSON(w, logger, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": results})
			return
		}
		web.RespondJSON(w, logger, http.StatusOK, map[string]any{"status": "ready", "checks": results})
	}
}
