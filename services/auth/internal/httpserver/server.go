package httpserver

import (
	"log/slog"
	"time"

	"github.com/complyhub/platform/pkg/httpx"
	loggingmw "github.com/complyhub/platform/pkg/middleware/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// New returns an echo instance with the auth service's middleware stack,
// validator and error envelope installed.
func New(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Validator = httpx.NewValidator()
	e.HTTPErrorHandler = httpx.ErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("1M"))
	return e
}
