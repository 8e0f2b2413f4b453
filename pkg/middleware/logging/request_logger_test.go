package loggingmw

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyhub/platform/pkg/logging"
)

func newLoggedEcho(buf *bytes.Buffer) *echo.Echo {
	e := echo.New()
	e.Use(RequestLogger(slog.New(slog.NewJSONHandler(buf, nil))))
	return e
}

// lines decodes every JSON log line written to buf.
func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &m))
		out = append(out, m)
	}
	return out
}

func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	for _, l := range lines(t, buf) {
		if l["msg"] == "request_completed" {
			return l
		}
	}
	t.Fatal("no request_completed line")
	return nil
}

func TestRequestLogger_InjectsLoggerAndRequestID(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	e := newLoggedEcho(&buf)
	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside_handler")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rid-1", rec.Header().Get(echo.HeaderXRequestID))
	all := lines(t, &buf)
	require.Len(t, all, 2)
	assert.Equal(t, "inside_handler", all[0]["msg"])
	assert.Equal(t, "rid-1", all[0]["request_id"])
	assert.Equal(t, "INFO", all[1]["level"])
	assert.EqualValues(t, 200, all[1]["status"])
	assert.NotContains(t, all[1], "user_id")
}

func TestRequestLogger_CarriesIdentityAndAuthOutcome(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	e := newLoggedEcho(&buf)
	e.GET("/policies", func(c echo.Context) error {
		SetAuthOutcome(c, "success")
		SetIdentity(c, "u-1", "t-1")
		logging.FromContext(c.Request().Context()).Info("policy_listed")
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/policies", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	all := lines(t, &buf)
	require.Len(t, all, 2)
	assert.Equal(t, "u-1", all[0]["user_id"])
	assert.Equal(t, "t-1", all[0]["tenant_id"])
	assert.Equal(t, "u-1", all[1]["user_id"])
	assert.Equal(t, "t-1", all[1]["tenant_id"])
	assert.Equal(t, "success", all[1]["auth"])
}

func TestRequestLogger_RendersErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler echo.HandlerFunc
		code    int
		level   string
		key     string
		want    string
	}{
		{
			name: "rejected token",
			handler: func(c echo.Context) error {
				SetAuthOutcome(c, "invalid_token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").
					SetInternal(errors.New("signature is invalid for a@x.com"))
			},
			code: http.StatusUnauthorized, level: "WARN", key: "reason", want: "Invalid or expired token",
		},
		{
			name: "upstream down",
			handler: func(c echo.Context) error {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication service unavailable").
					SetInternal(errors.New("dial tcp: refused"))
			},
			code: http.StatusServiceUnavailable, level: "ERROR", key: "error", want: "dial tcp: refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			e := newLoggedEcho(&buf)
			e.GET("/x", tt.handler)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.code, rec.Code)

			line := accessLine(t, &buf)
			assert.Equal(t, tt.level, line["level"])
			assert.EqualValues(t, tt.code, line["status"])
			assert.Equal(t, tt.want, line[tt.key])
			assert.NotContains(t, buf.String(), "a@x.com")
		})
	}
}

func TestRequestLogger_SkipsHealthAndMetrics(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	e := newLoggedEcho(&buf)
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, p := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, buf.String())
}
