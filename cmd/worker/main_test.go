package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsServer(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.MustNew(registry)
	m.ObserveOrphansSwept(3)

	srv := newMetricsServer(":0", registry)
	assert.Equal(t, ":0", srv.Addr)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "thumbnail_service_orphans_swept_total 3")

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
