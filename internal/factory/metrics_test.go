package factory_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/factory"
)

func TestPrometheusServer(t *testing.T) {
	registry, err := factory.CreateRegistry()
	require.NoError(t, err)

	server := factory.CreatePrometheusServer(config.Metrics{Port: 7777}, registry)
	assert.Equal(t, ":7777", server.Addr)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "meeting_publisher_build_info")

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
