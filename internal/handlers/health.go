package handlers

import (
	"net/http"
	"time"

	"github.com/auric-jewels/api/internal/platform/httpx"
	"github.com/auric-jewels/api/internal/services"
)

var startTime = time.Now()

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
}

// NewHealthHandlers constructs health handlers.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system}
}

type healthResponse struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components,omitempty"`
	CheckedAt  string            `json:"checkedAt,omitempty"`
}

// Healthz reports process liveness; it never consults dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(startTime).String(),
	})
}

// Readyz probes the backing dependencies and reports 503 until they answer.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "health checks unavailable", http.StatusServiceUnavailable))
		return
	}

	report, err := h.system.Health(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "dependency health collection failed", http.StatusServiceUnavailable))
		return
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, healthResponse{
		Status:     report.Status,
		Uptime:     time.Since(startTime).String(),
		Components: report.Components,
		CheckedAt:  formatTime(report.CheckedAt),
	})
}
