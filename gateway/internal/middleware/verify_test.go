package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/complyhub/platform/pkg/authclient"
	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, tok string) (*tokens.AccessClaims, error) {
	args := m.Called(ctx, tok)
	c, _ := args.Get(0).(*tokens.AccessClaims)
	return c, args.Error(1)
}

type seen struct {
	userID, tenantID, email, perms string
	spoofed                        string
	ctxUser                        any
}

func newFilterServer(v Verifier) (*echo.Echo, *seen) {
	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	for _, m := range Common(slog.New(slog.NewJSONHandler(io.Discard, nil))) {
		e.Use(m)
	}
	got := &seen{}
	g := e.Group("/api/v1", Authenticate(v, metrics.New(prometheus.NewRegistry(), "gw")))
	g.GET("/policies", func(c echo.Context) error {
		h := c.Request().Header
		got.userID = h.Get(HeaderUserID)
		got.tenantID = h.Get(HeaderTenantID)
		got.email = h.Get(HeaderEmail)
		got.perms = h.Get(HeaderPermissions)
		got.spoofed = h.Get("X-Auth-Role")
		got.ctxUser = c.Get(CtxUserID)
		return c.NoContent(http.StatusNoContent)
	})
	return e, got
}

func call(e *echo.Echo, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_Outcomes(t *testing.T) {
	t.Parallel()

	claims := &tokens.AccessClaims{
		UserID: "u-1", TenantID: "t-1", Email: "a@x.com",
		Permissions: []tokens.Permission{{Resource: "policy", Action: "read"}, {Resource: "audit", Action: "read"}},
	}

	tests := []struct {
		name     string
		header   string
		result   *tokens.AccessClaims
		err      error
		wantCode int
		wantBody string
	}{
		{name: "valid", header: "Bearer good", result: claims, wantCode: http.StatusNoContent},
		{name: "no header", wantCode: http.StatusUnauthorized, wantBody: "No token provided"},
		{name: "wrong scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantBody: "No token provided"},
		{name: "invalid", header: "Bearer bad", err: tokens.ErrInvalidToken, wantCode: http.StatusUnauthorized, wantBody: "Invalid or expired token"},
		{name: "invalid wrapped", header: "Bearer bad", err: fmt.Errorf("%w: expired", authclient.ErrInvalidToken), wantCode: http.StatusUnauthorized, wantBody: "Invalid or expired token"},
		{name: "auth down", header: "Bearer good", err: fmt.Errorf("%w: dial tcp", authclient.ErrUnavailable), wantCode: http.StatusServiceUnavailable, wantBody: "Authentication service unavailable"},
		{name: "unexpected", header: "Bearer good", err: errors.New("boom"), wantCode: http.StatusServiceUnavailable, wantBody: "Authentication service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := &mockVerifier{}
			if tt.result != nil || tt.err != nil {
				v.On("Verify", mock.Anything, mock.Anything).Return(tt.result, tt.err).Once()
			}
			e, got := newFilterServer(v)

			rec := call(e, map[string]string{echo.HeaderAuthorization: tt.header})
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.wantCode == http.StatusNoContent {
				assert.Equal(t, "u-1", got.userID)
				assert.Equal(t, "t-1", got.tenantID)
				assert.Equal(t, "a@x.com", got.email)
				assert.Equal(t, "policy:read,audit:read", got.perms)
				assert.Equal(t, "u-1", got.ctxUser)
			}
			v.AssertExpectations(t)
		})
	}
}

func TestAuthenticate_StripsSpoofedIdentity(t *testing.T) {
	t.Parallel()
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, "good").Return(&tokens.AccessClaims{UserID: "real", TenantID: "t"}, nil).Once()
	e, got := newFilterServer(v)

	rec := call(e, map[string]string{
		echo.HeaderAuthorization: "Bearer good",
		HeaderUserID:             "admin",
		"X-Auth-Role":            "superuser",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "real", got.userID)
	assert.Empty(t, got.spoofed)
	assert.Empty(t, got.perms)
}

func TestLocalVerifier(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	secret := []byte("shared")
	codec := tokens.Codec{AccessSecret: secret, AccessTTL: time.Minute, Now: func() time.Time { return now }}
	tok, err := codec.IssueAccess(&tokens.AccessClaims{UserID: "u-9", TenantID: "t-9"})
	require.NoError(t, err)

	v := NewLocalVerifier(secret, func() time.Time { return now })
	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "u-9", claims.UserID)

	late := NewLocalVerifier(secret, func() time.Time { return now.Add(time.Hour) })
	_, err = late.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, tokens.ErrInvalidToken)

	e, _ := newFilterServer(v)
	assert.Equal(t, http.StatusNoContent, call(e, map[string]string{echo.HeaderAuthorization: "Bearer " + tok}).Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, map[string]string{echo.HeaderAuthorization: "Bearer nope"}).Code)
}

func TestAuthenticate_WithRemoteClient(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer live" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":401,"message":"Invalid or expired token"}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":200,"message":"Token is valid","data":{"userId":"u-2","tenantId":"t-2","email":"b@x.com","type":"access"}}`)
	}))
	t.Cleanup(srv.Close)

	e, got := newFilterServer(authclient.NewClient(srv.URL, time.Second))
	assert.Equal(t, http.StatusNoContent, call(e, map[string]string{echo.HeaderAuthorization: "Bearer live"}).Code)
	assert.Equal(t, "u-2", got.userID)
	assert.Equal(t, http.StatusUnauthorized, call(e, map[string]string{echo.HeaderAuthorization: "Bearer dead"}).Code)

	down := authclient.NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	e2, _ := newFilterServer(down)
	assert.Equal(t, http.StatusServiceUnavailable, call(e2, map[string]string{echo.HeaderAuthorization: "Bearer live"}).Code)
}

func TestAuthenticate_LogsCallerAndOutcome(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	v := new(mockVerifier)
	v.On("Verify", mock.Anything, "good").Return(&tokens.AccessClaims{UserID: "u-9", TenantID: "t-9"}, nil)
	v.On("Verify", mock.Anything, "bad").Return(nil, tokens.ErrInvalidToken)

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler
	for _, m := range Common(slog.New(slog.NewJSONHandler(&buf, nil))) {
		e.Use(m)
	}
	g := e.Group("/api/v1", Authenticate(v, nil))
	g.GET("/policies", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := call(e, map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, buf.String(), `"user_id":"u-9"`)
	assert.Contains(t, buf.String(), `"tenant_id":"t-9"`)
	assert.Contains(t, buf.String(), `"auth":"success"`)

	buf.Reset()
	rec = call(e, map[string]string{"Authorization": "Bearer bad"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, buf.String(), `"auth":"invalid_token"`)
	assert.NotContains(t, buf.String(), `"user_id"`)
}
