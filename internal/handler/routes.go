package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghproxy-go/internal/config"
	"ghproxy-go/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The
// direct-proxy wildcard is registered last; Echo still routes the more
// specific paths (index, health, metrics, /raw) ahead of it.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics, cfg *config.Config) {
	e.GET("/", proxy.Index)
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}

	e.GET("/raw/*", proxy.HandleRaw)
	e.GET("/*", proxy.Handle)
}
