package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/SessionSync/pkg/types/common"
)

const (
	readinessTimeout = 5 * time.Second
	detailTimeout    = 10 * time.Second
)

// HealthHandler serves the liveness, readiness and detail probes.
type HealthHandler struct {
	checkers []common.HealthChecker
	version  string
	startAt  time.Time
}

// NewHealthHandler creates a new HealthHandler.  The checkers gate readiness.
func NewHealthHandler(version string, checkers ...common.HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
	}
}

// LivenessResponse is the response for liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the response for readiness probe.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// DetailedResponse is the response of the detail probe.
type DetailedResponse struct {
	Status     string                    `json:"status"`
	Version    string                    `json:"version"`
	Uptime     string                    `json:"uptime"`
	Components map[string]ComponentCheck `json:"components"`
}

// ComponentCheck represents the health status of a single component.
type ComponentCheck struct {
	Status  common.HealthStatus `json:"status"`
	Latency string              `json:"latency,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Liveness handles GET /healthz.  It never touches dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  h.uptime(),
	})
}

// Readiness handles GET /readyz: 200 when every checker passes, 503 otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if len(h.checkers) == 0 {
		writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}

	components, healthy := h.checkAll(r.Context(), readinessTimeout)
	resp := ReadinessResponse{Status: "ready", Components: components}
	if !healthy {
		resp.Status = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Detailed handles GET /healthz/detail.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	components, healthy := h.checkAll(r.Context(), detailTimeout)
	resp := DetailedResponse{
		Status:     "healthy",
		Version:    h.version,
		Uptime:     h.uptime(),
		Components: components,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (h *HealthHandler) checkAll(ctx context.Context, timeout time.Duration) (map[string]ComponentCheck, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := common.CheckAll(ctx, h.checkers...)
	out := make(map[string]ComponentCheck, len(results))
	for _, res := range results {
		out[res.Name] = ComponentCheck{
			Status:  res.Status,
			Latency: res.Latency.Truncate(time.Microsecond).String(),
			Error:   res.Message,
		}
	}
	return out, common.AllHealthy(results)
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startAt).Truncate(time.Second).String()
}

//Personal.AI order the ending
