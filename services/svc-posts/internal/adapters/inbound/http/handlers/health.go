package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/architeacher/posts/services/svc-posts/internal/usecases"
	"github.com/architeacher/posts/services/svc-posts/internal/usecases/queries"
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

type (
	probeResponse struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}

	dependencyResponse struct {
		Status   string `json:"status"`
		Critical bool   `json:"critical"`
		Latency  string `json:"latency,omitempty"`
		Message  string `json:"message,omitempty"`
	}

	healthResponse struct {
		Status       string                        `json:"status"`
		Timestamp    time.Time                     `json:"timestamp"`
		Version      string                        `json:"version"`
		GoVersion    string                        `json:"goVersion"`
		Uptime       string                        `json:"uptime"`
		Dependencies map[string]dependencyResponse `json:"dependencies"`
	}

	HealthHandler struct {
		app *usecases.Application
	}
)

func NewHealthHandler(app *usecases.Application) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.app.Queries.FetchLiveness.Execute(r.Context(), queries.FetchLivenessQuery{}); err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, probeResponse{Status: statusDown, Timestamp: time.Now().UTC()})

		return
	}

	writeJSONResponse(w, http.StatusOK, probeResponse{Status: statusUp, Timestamp: time.Now().UTC()})
}

func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchReadiness.Execute(r.Context(), queries.FetchReadinessQuery{})
	if err != nil || !result.Ready {
		writeJSONResponse(w, http.StatusServiceUnavailable, probeResponse{Status: statusDown, Timestamp: time.Now().UTC()})

		return
	}

	writeJSONResponse(w, http.StatusOK, probeResponse{Status: statusUp, Timestamp: time.Now().UTC()})
}

// HealthCheck reports every dependency. Only an unhealthy service answers 503;
// a degraded one still serves traffic.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchHealthReport.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, probeResponse{Status: statusDown, Timestamp: time.Now().UTC()})

		return
	}

	httpStatus := http.StatusOK
	if result.Status == queries.HealthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	dependencies := make(map[string]dependencyResponse, len(result.Dependencies))
	for name, dep := range result.Dependencies {
		status := statusUp
		if !dep.Healthy {
			status = statusDown
		}

		dependencies[name] = dependencyResponse{
			Status:   status,
			Critical: dep.Critical,
			Latency:  dep.Latency,
			Message:  dep.Message,
		}
	}

	writeJSONResponse(w, httpStatus, healthResponse{
		Status:       result.Status,
		Timestamp:    time.Now().UTC(),
		Version:      result.Version,
		GoVersion:    runtime.Version(),
		Uptime:       result.Uptime,
		Dependencies: dependencies,
	})
}
