package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves liveness and readiness probes. Readiness drops as
// soon as shutdown starts so load balancers stop routing new MCP sessions.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	startTime time.Time
	version   string
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{sc: sc, startTime: time.Now(), version: version}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	Uptime         string `json:"uptime"`
	Backend        string `json:"backend,omitempty"`
	ReadOnly       bool   `json:"readOnly"`
	ActiveSessions int    `json:"activeSelectionSessions"`
}

// status returns the overall state and the individual checks behind it.
func (h *HealthChecker) status() (string, map[string]string) {
	checks := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}
	overall := healthStatusOK
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		overall = healthStatusNotReady
	}
	if h.sc != nil && h.sc.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		if overall == healthStatusOK {
			overall = healthStatusShuttingDown
		}
	}
	return overall, checks
}

func writeHealth(w http.ResponseWriter, status string, body any) {
	w.Header().Set("Content-Type", "application/json")
	if status == healthStatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler always answers 200 while the process serves HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, healthStatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 once the checker is not ready or the server
// context has shut down.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		overall, checks := h.status()
		resp := HealthResponse{Status: overall, Checks: checks}
		if overall != healthStatusOK {
			resp.Status = healthStatusNotReady
		}
		writeHealth(w, overall, resp)
	})
}

// DetailedHealthHandler adds version, uptime, backend and the number of
// live selection sessions.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		overall, _ := h.status()
		resp := DetailedHealthResponse{
			Status:  overall,
			Version: h.version,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		}
		if h.sc != nil {
			resp.Backend = h.sc.BackendName()
			resp.ReadOnly = h.sc.ReadOnly()
			resp.ActiveSessions = h.sc.Sessions().Len()
		}
		writeHealth(w, overall, resp)
	})
}

// RegisterHealthEndpoints mounts /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
