package apiserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmesh/hes/internal/apiserver"
	"github.com/rfmesh/hes/internal/cli/health"
	"github.com/rfmesh/hes/internal/gateway"
)

func TestLivenessReportsHealthy(t *testing.T) {
	srv := apiserver.NewServer(apiserver.Config{Port: 0}, gateway.NewRegistry(), time.Now())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp health.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "hes", resp.Data.Service)
}

func TestReadinessReflectsConnectedGateways(t *testing.T) {
	reg := gateway.NewRegistry()
	reg.Register(&gateway.Session{GatewayID: "aaaaaaaaaaaaaaaa"})
	srv := apiserver.NewServer(apiserver.Config{Port: 0}, reg, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp health.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Data.ConnectedGateways)
}

func TestMetricsRouteAbsentWhenDisabled(t *testing.T) {
	srv := apiserver.NewServer(apiserver.Config{Port: 0}, gateway.NewRegistry(), time.Now())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
