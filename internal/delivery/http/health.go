package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Check probes one dependency. A nil error means healthy.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// HealthHandler reports dependency reachability.
type HealthHandler struct {
	checks []Check
	logger zerolog.Logger
}

// NewHealthHandler creates a health check handler over the given probes.
func NewHealthHandler(logger zerolog.Logger, checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// ServeHTTP implements http.Handler interface
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := make([]ComponentHealth, 0, len(h.checks))
	allHealthy := true
	anyHealthy := false

	for _, check := range h.checks {
		component := ComponentHealth{Name: check.Name, Healthy: true}
		if err := check.Probe(ctx); err != nil {
			component.Healthy = false
			component.Message = err.Error()
			allHealthy = false
		} else {
			anyHealthy = true
		}
		components = append(components, component)
	}

	status := HealthStatusUnhealthy
	switch {
	case allHealthy:
		status = HealthStatusHealthy
	case anyHealthy:
		status = HealthStatusDegraded
	}

	statusCode := http.StatusOK
	if status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	logEvent := h.logger.Debug()
	if status != HealthStatusHealthy {
		logEvent = h.logger.Warn()
	}
	logEvent.
		Str("status", string(status)).
		Int("status_code", statusCode).
		Msg("Health check completed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health check response")
	}
}
