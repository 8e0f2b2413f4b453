package loggingmw

import (
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/complyhub/platform/pkg/logging"
)

const (
	keyUserID   = "log.user_id"
	keyTenantID = "log.tenant_id"
	keyAuth     = "log.auth"
)

// Config tunes RequestLogger. Health checks and scrapers hit /health and
// /metrics every few seconds, so those are skipped by default.
type Config struct {
	Logger  *slog.Logger
	Skipper middleware.Skipper
}

func defaultSkipper(c echo.Context) bool {
	switch c.Path() {
	case "/health", "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(Config{Logger: base})
}

// RequestLoggerWithConfig puts a request-scoped logger into the request
// context and logs one access line per request, carrying the caller identity
// and auth outcome recorded by the authentication layers. Errors are rendered
// here so the logged status is final.
func RequestLoggerWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Skipper == nil {
		cfg.Skipper = defaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := cfg.Logger.With("method", req.Method, "route", c.Path(), "remote_ip", c.RealIP())
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			if cfg.Skipper(c) {
				return nil
			}

			status := c.Response().Status
			attrs := []any{
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", req.UserAgent(),
			}
			if uid, _ := c.Get(keyUserID).(string); uid != "" {
				attrs = append(attrs, "user_id", uid, "tenant_id", c.Get(keyTenantID))
			}
			if outcome, _ := c.Get(keyAuth).(string); outcome != "" {
				attrs = append(attrs, "auth", outcome)
			}

			switch {
			case status >= 500:
				l.Error("request_completed", append(attrs, "error", errText(err))...)
			case status >= 400:
				l.Warn("request_completed", append(attrs, "reason", reason(err))...)
			default:
				l.Info("request_completed", append(attrs, "bytes", c.Response().Size)...)
			}
			return nil
		}
	}
}

// SetIdentity records the verified caller on the request. The access line
// and every logger taken from the request context afterwards carry it.
func SetIdentity(c echo.Context, userID, tenantID string) {
	c.Set(keyUserID, userID)
	c.Set(keyTenantID, tenantID)
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("user_id", userID, "tenant_id", tenantID)
	c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))
}

// SetAuthOutcome records how authentication of the request ended, e.g.
// "success", "missing_token", "invalid_token", "unavailable".
func SetAuthOutcome(c echo.Context, outcome string) {
	c.Set(keyAuth, outcome)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		return he.Internal.Error()
	}
	return err.Error()
}

// reason is the client-facing message of a 4xx. Internal causes are kept out
// of warn lines since they may echo request input.
func reason(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok {
			return s
		}
	}
	return ""
}
