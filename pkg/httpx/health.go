package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthStatus struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

func Health(service string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthStatus{Status: "healthy", Service: service, Timestamp: time.Now().UTC()})
	}
}

func Live(c echo.Context) error { return c.NoContent(http.StatusOK) }

// Ready answers 503 while check fails. A nil check is always ready.
func Ready(check func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready").SetInternal(err)
		}
		return c.NoContent(http.StatusOK)
	}
}
