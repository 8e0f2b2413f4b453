package httpserver

import (
	"context"

	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Directory   *DirectoryHTTP
	Ready       func(ctx context.Context) error
	Gatherer    prometheus.Gatherer
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", httpx.Health("auth-service"))
	e.GET("/health/live", httpx.Live)
	e.GET("/health/ready", httpx.Ready(d.Ready))
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Gatherer)))
	}

	g := e.Group("/auth")
	g.POST("/register", d.AuthHandler.Register)
	g.POST("/login", d.AuthHandler.Login)
	g.POST("/refresh", d.AuthHandler.Refresh)
	g.POST("/logout", d.AuthHandler.Logout)
	g.GET("/verify", d.AuthHandler.Verify)

	if d.Directory != nil {
		dir := e.Group("", RequireAuth(d.AuthHandler.Svc))
		dir.GET("/users", d.Directory.ListUsers)
		dir.GET("/users/:id", d.Directory.GetUser)
		dir.GET("/roles", d.Directory.ListRoles)
		dir.GET("/tenants", d.Directory.GetTenant)
		dir.GET("/auth/events", d.Directory.AuditEvents)
	}
}
