// Package metrics exposes Prometheus collectors for the HTTP surface and completed sales.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records request and sale statistics. A nil or unregistered Metrics is a no-op.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	salesTotal    prometheus.Counter
	itemsSold     prometheus.Counter
	revenueAmount prometheus.Counter
}

// New registers the collectors on reg. A nil reg yields a no-op instance.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	salesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_finalized_total",
		Help: "Finalized sales.",
	})
	itemsSold := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sale_items_sold_total",
		Help: "Units sold in finalized sales.",
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_revenue_total",
		Help: "Sum of finalized sale totals.",
	})
	reg.MustRegister(requests, duration, salesTotal, itemsSold, revenue)
	return &Metrics{
		requests:      requests,
		duration:      duration,
		salesTotal:    salesTotal,
		itemsSold:     itemsSold,
		revenueAmount: revenue,
	}
}

// Middleware counts requests labelled by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil || m.requests == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSale records one finalized sale.
func (m *Metrics) ObserveSale(units int, total float64) {
	if m == nil || m.salesTotal == nil {
		return
	}
	m.salesTotal.Inc()
	m.itemsSold.Add(float64(units))
	m.revenueAmount.Add(total)
}

// Handler serves the collected metrics of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
