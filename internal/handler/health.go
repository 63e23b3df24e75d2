package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ghproxy-go/internal/cache"
	"ghproxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	store   *cache.Cache
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, store *cache.Cache, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, store: store, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       string(h.version),
		"cache_enabled": h.store.Enabled(),
		"cache_entries": h.store.Len(),
	})
}
