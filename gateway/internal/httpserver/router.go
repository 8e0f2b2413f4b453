package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/complyhub/platform/gateway/internal/middleware"
	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var errNoHost = errors.New("target must be an absolute URL")

type Deps struct {
	Logger   *slog.Logger
	AuthURL  string
	Services map[string]string
	Verifier middleware.Verifier
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// authRoutes are served by the auth service, which mounts them without the
// /api/v1 prefix. Only /auth is public.
var authRoutes = []string{"/users", "/roles", "/tenants"}

// resourceRoutes maps each protected path to the service that owns it.
// These services receive the full path.
var resourceRoutes = []struct{ path, service string }{
	{"/policies", "policy"},
	{"/documents", "document"},
	{"/audits", "audit"},
	{"/capa", "capa"},
	{"/risks", "risk"},
	{"/analytics", "analytics"},
	{"/notifications", "notification"},
}

func Register(e *echo.Echo, d *Deps) error {
	e.HTTPErrorHandler = httpx.ErrorHandler
	for _, m := range middleware.Common(d.Logger) {
		e.Use(m)
	}

	e.GET("/health", httpx.Health("api-gateway"))
	e.GET("/health/live", httpx.Live)
	e.GET("/health/ready", httpx.Ready(nil))
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Gatherer)))
	}

	authProxy, err := newProxy(d.AuthURL, "/api/v1")
	if err != nil {
		return fmt.Errorf("auth proxy: %w", err)
	}
	e.Any("/api/v1/auth/*", authProxy)

	api := e.Group("/api/v1", middleware.Authenticate(d.Verifier, d.Metrics))
	for _, p := range authRoutes {
		api.Any(p, authProxy)
		api.Any(p+"/*", authProxy)
	}
	for _, r := range resourceRoutes {
		target, ok := d.Services[r.service]
		if !ok || target == "" {
			return fmt.Errorf("no URL configured for %s service", r.service)
		}
		proxy, err := newProxy(target, "")
		if err != nil {
			return fmt.Errorf("%s proxy: %w", r.service, err)
		}
		api.Any(r.path, proxy)
		api.Any(r.path+"/*", proxy)
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Route not found")
	})
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
