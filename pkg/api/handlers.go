package api

import (
	"net/http"
	"sort"
	"time"
)

// handlers serves the admin endpoints over the runtime dependencies.
type handlers struct {
	deps    Deps
	started time.Time
}

// newHandlers creates the endpoint handlers. The startup time anchors the
// uptime reported by Stats.
func newHandlers(deps Deps) *handlers {
	return &handlers{deps: deps, started: time.Now()}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK as long as the HTTP server is responsive. Designed for
// Kubernetes liveness probes.
func (h *handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthyResponse(map[string]string{
		"service": "talko",
		"version": h.deps.Version,
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK when the chat store answers a ping, 503 otherwise. A
// runtime without a store (misconfigured or shutting down) is not ready.
func (h *handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("chat store not initialized"))
		return
	}

	start := time.Now()
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		JSON(w, http.StatusServiceUnavailable, UnhealthyResponse("chat store ping failed: "+err.Error()))
		return
	}

	JSON(w, http.StatusOK, HealthyResponse(map[string]any{
		"store_latency": time.Since(start).String(),
	}))
}

// AdapterStats is one adapter's counters in the stats response.
type AdapterStats struct {
	Protocol string `json:"protocol"`
	Port     int    `json:"port"`
	Active   int32  `json:"active_connections"`
	Accepted uint64 `json:"accepted_connections"`
	Shed     uint64 `json:"shed_connections"`
}

// StatsResponse is the payload of GET /api/v1/stats.
type StatsResponse struct {
	Uptime      string         `json:"uptime"`
	Adapters    []AdapterStats `json:"adapters"`
	Subscribers *int           `json:"subscribers,omitempty"`
}

// Stats handles GET /api/v1/stats - runtime counters.
func (h *handlers) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Adapters: make([]AdapterStats, 0, len(h.deps.Adapters)),
	}

	for _, a := range h.deps.Adapters {
		stats := a.Stats()
		resp.Adapters = append(resp.Adapters, AdapterStats{
			Protocol: a.Protocol(),
			Port:     a.Port(),
			Active:   stats.Active,
			Accepted: stats.Accepted,
			Shed:     stats.Shed,
		})
	}

	if h.deps.Subscribers != nil {
		n := len(h.deps.Subscribers())
		resp.Subscribers = &n
	}

	JSON(w, http.StatusOK, OKResponse(resp))
}

// SubscribersResponse is the payload of GET /api/v1/subscribers.
type SubscribersResponse struct {
	UserIDs []int64 `json:"user_ids"`
	Count   int     `json:"count"`
}

// Subscribers handles GET /api/v1/subscribers - users with an open stream.
//
// Returns 404 when the broadcast server is disabled in this process.
func (h *handlers) Subscribers(w http.ResponseWriter, r *http.Request) {
	if h.deps.Subscribers == nil {
		JSON(w, http.StatusNotFound, ErrorResponse("broadcast server is not running"))
		return
	}

	ids := h.deps.Subscribers()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	JSON(w, http.StatusOK, OKResponse(SubscribersResponse{
		UserIDs: ids,
		Count:   len(ids),
	}))
}
