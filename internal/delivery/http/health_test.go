package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func healthyProbe(ctx context.Context) error   { return nil }
func unhealthyProbe(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     []Check
		wantCode   int
		wantStatus HealthStatus
	}{
		{
			name: "all healthy",
			checks: []Check{
				{Name: "postgres", Probe: healthyProbe},
				{Name: "redis", Probe: healthyProbe},
			},
			wantCode:   http.StatusOK,
			wantStatus: HealthStatusHealthy,
		},
		{
			name: "one unhealthy",
			checks: []Check{
				{Name: "postgres", Probe: healthyProbe},
				{Name: "redis", Probe: unhealthyProbe},
			},
			wantCode:   http.StatusOK,
			wantStatus: HealthStatusDegraded,
		},
		{
			name: "all unhealthy",
			checks: []Check{
				{Name: "postgres", Probe: unhealthyProbe},
				{Name: "redis", Probe: unhealthyProbe},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(zerolog.Nop(), tt.checks...)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if len(resp.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(resp.Components), len(tt.checks))
			}
		})
	}
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	handler := NewHealthHandler(zerolog.Nop(), Check{Name: "postgres", Probe: healthyProbe})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
