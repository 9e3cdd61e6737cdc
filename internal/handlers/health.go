package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/intent/dashboard/internal/backend"
)

// Version is reported by the health endpoints
const Version = "0.1.0"

const serviceName = "intent-dashboard"

// Pinger checks that a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named optional dependency. A nil Pinger is reported as
// not configured.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	backend Pinger
	breaker *backend.CircuitBreaker
	deps    []Dependency
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(backendPinger Pinger, breaker *backend.CircuitBreaker, deps ...Dependency) *HealthHandler {
	sorted := append([]Dependency(nil), deps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &HealthHandler{backend: backendPinger, breaker: breaker, deps: sorted}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Breaker      string            `json:"breaker,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

// Health returns basic health status
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
	})
}

// DeepHealth returns health status with dependency checks
// @Summary Readiness with dependency checks
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deps := make(map[string]string)
	allHealthy := true

	if err := h.backend.Ping(ctx); err != nil {
		deps["synthesis_backend"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		deps["synthesis_backend"] = "healthy"
	}

	// Optional dependencies degrade the service but never disable it
	for _, d := range h.deps {
		if d.Pinger == nil {
			deps[d.Name] = "not configured"
			continue
		}
		if err := d.Pinger.Ping(ctx); err != nil {
			deps[d.Name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			deps[d.Name] = "healthy"
		}
	}

	resp := HealthResponse{
		Status:       "healthy",
		Service:      serviceName,
		Version:      Version,
		Dependencies: deps,
	}
	if h.breaker != nil {
		resp.Breaker = h.breaker.State().String()
	}

	httpStatus := http.StatusOK
	if !allHealthy {
		resp.Status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, resp)
}
