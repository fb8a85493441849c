package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

const probeTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool and the cache service
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db      Pinger
	cache   Pinger
	storage func(ctx context.Context) error // nil when report storage is disabled
	version string
	started time.Time
}

func NewHealthHandlers(db, cache Pinger, storage func(ctx context.Context) error, version string) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		storage: storage,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

type probeResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func (h *HealthHandlers) probes() map[string]func(context.Context) error {
	probes := map[string]func(context.Context) error{
		"database": h.db.Ping,
		"redis":    h.cache.Ping,
	}
	if h.storage != nil {
		probes["storage"] = h.storage
	}
	return probes
}

func runProbe(ctx context.Context, probe func(context.Context) error) probeResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := probe(ctx)
	res := probeResult{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "unhealthy"
		res.Message = err.Error()
	}
	return res
}

// HealthCheck performs comprehensive health checks
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	for name, probe := range h.probes() {
		res := runProbe(ctx, probe)
		health.Services[name] = res.Status
		if res.Status != "healthy" {
			health.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck only gates on the database; the cache and storage degrade gracefully
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	if res := runProbe(c.Request().Context(), h.db.Ping); res.Status != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "database unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck determines if the application is running (basic liveness probe)
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck provides detailed health information
func (h *HealthHandlers) DetailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	checks := make(map[string]probeResult)
	overall := "healthy"
	for name, probe := range h.probes() {
		res := runProbe(ctx, probe)
		checks[name] = res
		if res.Status != "healthy" {
			overall = "degraded"
		}
	}

	statusCode := http.StatusOK
	if overall == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, map[string]interface{}{
		"overall_status": overall,
		"checks":         checks,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"version":        h.version,
		"goroutines":     runtime.NumGoroutine(),
	})
}
