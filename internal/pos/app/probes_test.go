package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abgdnv/gopos/internal/config"
	"github.com/abgdnv/gopos/internal/platform/messaging"
	"github.com/abgdnv/gopos/internal/pos/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pingingPublisher drops events and answers pings with err.
type pingingPublisher struct {
	messaging.NopPublisher
	err error
}

func (p pingingPublisher) Ping(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	testCases := []struct {
		name         string
		checks       map[string]Check
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - every dependency ready",
			checks:       map[string]Check{"store": func(context.Context) error { return nil }},
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"ready","checks":{"store":"ok"}}`,
		},
		{
			name: "Error - one dependency down",
			checks: map[string]Check{
				"store": func(context.Context) error { return nil },
				"nats":  func(context.Context) error { return errors.New("nats: connection closed") },
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"status":"not ready","checks":{"store":"ok","nats":"nats: connection closed"}}`,
		},
		{
			name:         "Success - no checks",
			checks:       map[string]Check{},
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"ready","checks":{}}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			rec := httptest.NewRecorder()
			// when
			Ready(tc.checks, discard())(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			// then
			assert.Equal(t, tc.expectedCode, rec.Code)
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())
		})
	}
}

func TestProbeRoutes(t *testing.T) {
	// given
	deps, err := SetupDependencies(context.Background(), store.NewInMemoryStore(),
		pingingPublisher{err: errors.New("jetstream unavailable")}, &config.Config{}, discard())
	require.NoError(t, err)
	h := SetupHttpHandler(deps)

	// when
	live := httptest.NewRecorder()
	h.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/livez", nil))
	ready := httptest.NewRecorder()
	h.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	// then
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.JSONEq(t, `{"status":"not ready","checks":{"store":"ok","nats":"jetstream unavailable"}}`, ready.Body.String())
}
