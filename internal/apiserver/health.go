package apiserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rfmesh/hes/internal/cli/health"
	"github.com/rfmesh/hes/internal/gateway"
)

type healthHandler struct {
	registry  *gateway.Registry
	startedAt time.Time
}

func newHealthHandler(registry *gateway.Registry, startedAt time.Time) *healthHandler {
	return &healthHandler{registry: registry, startedAt: startedAt}
}

// liveness handles GET /health: 200 as long as the process is responsive.
func (h *healthHandler) liveness(w http.ResponseWriter, r *http.Request) {
	h.writeHealth(w, http.StatusOK, "healthy", "")
}

// readiness handles GET /health/ready: 503 until the gateway registry exists.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.writeHealth(w, http.StatusServiceUnavailable, "unhealthy", "gateway registry not initialized")
		return
	}
	h.writeHealth(w, http.StatusOK, "healthy", "")
}

func (h *healthHandler) writeHealth(w http.ResponseWriter, status int, statusStr, errStr string) {
	uptime := time.Since(h.startedAt)
	resp := health.Response{Status: statusStr, Timestamp: time.Now().UTC().Format(time.RFC3339), Error: errStr}
	resp.Data.Service = "hes"
	resp.Data.StartedAt = h.startedAt.UTC().Format(time.RFC3339)
	resp.Data.Uptime = uptime.String()
	resp.Data.UptimeSec = int64(uptime.Seconds())
	if h.registry != nil {
		resp.Data.ConnectedGateways = h.registry.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
