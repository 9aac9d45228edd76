package handler

import (
	"context"
	"net/http"
	"time"
)

// StorePinger checks that the snapshot store is reachable
type StorePinger interface {
	Ping(ctx context.Context) error
}

// RaidCounter reports how many raids are registered
type RaidCounter interface {
	Count() int
}

// GatewayStatus reports whether the relay connection is up
type GatewayStatus interface {
	IsConnected() bool
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Gateway string `json:"gateway"`
	Raids   int    `json:"raids"`
}

// HealthHandler reports liveness, snapshot store reachability and the relay
// connection state
type HealthHandler struct {
	store   StorePinger
	raids   RaidCounter
	gateway GatewayStatus
	timeout time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store StorePinger, raids RaidCounter) *HealthHandler {
	return &HealthHandler{store: store, raids: raids, timeout: 2 * time.Second}
}

// WithGateway adds the relay connection to the report. Without it the gateway
// is reported as disabled.
func (h *HealthHandler) WithGateway(gateway GatewayStatus) *HealthHandler {
	h.gateway = gateway
	return h
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
}

// Health handles GET /health. The roster keeps serving from memory while the
// store or the relay is down, so either one degrades the status instead of
// failing it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "up", Gateway: "disabled", Raids: h.raids.Count()}

	if h.gateway != nil {
		resp.Gateway = "up"
		if !h.gateway.IsConnected() {
			resp.Status = "degraded"
			resp.Gateway = "down"
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = "down"
	}

	WriteJSON(w, http.StatusOK, resp)
}
