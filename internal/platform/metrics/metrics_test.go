package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	// given
	reg := prometheus.NewRegistry()
	m := New(reg)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/products/{barcode}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	// when
	for _, barcode := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/"+barcode, nil))
	}
	// then
	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/products/{barcode}", "404"))
	assert.Equal(t, float64(2), got)
}

func TestObserveSale(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSale(3, 4.5)
	m.ObserveSale(1, 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.salesTotal))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.itemsSold))
	assert.Equal(t, 6.5, testutil.ToFloat64(m.revenueAmount))
}

func TestNoopMetrics(t *testing.T) {
	m := New(nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
	rr := httptest.NewRecorder()

	m.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	m.ObserveSale(1, 1)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	var nilMetrics *Metrics
	nilMetrics.ObserveSale(1, 1)
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveSale(1, 1)
	rr := httptest.NewRecorder()

	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pos_sales_finalized_total 1")
}
