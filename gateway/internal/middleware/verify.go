package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/complyhub/platform/pkg/logging"
	loggingmw "github.com/complyhub/platform/pkg/middleware/logging"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserID      = "user_id"
	CtxTenantID    = "tenant_id"
	CtxEmail       = "email"
	CtxPermissions = "permissions"
	CtxToken       = "token"
)

const (
	HeaderUserID      = "X-Auth-User-Id"
	HeaderTenantID    = "X-Auth-Tenant-Id"
	HeaderEmail       = "X-Auth-Email"
	HeaderPermissions = "X-Auth-Permissions"

	identityHeaderPrefix = "X-Auth-"
)

var MissingToken = errors.New("no token provided")

// Verifier resolves an access token to claims. Implementations return an
// error matching tokens.ErrInvalidToken when the token itself is bad; any
// other error means no verdict could be reached.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*tokens.AccessClaims, error)
}

// LocalVerifier checks signature and expiry in process. It cannot see
// revoked sessions.
type LocalVerifier struct {
	codec tokens.Codec
}

func NewLocalVerifier(secret []byte, now func() time.Time) *LocalVerifier {
	return &LocalVerifier{codec: tokens.Codec{AccessSecret: secret, Now: now}}
}

func (v *LocalVerifier) Verify(_ context.Context, accessToken string) (*tokens.AccessClaims, error) {
	return v.codec.VerifyAccess(accessToken)
}

// Authenticate guards protected routes. Missing and invalid tokens are 401,
// an auth service that cannot answer is 503 so clients know to retry.
func Authenticate(v Verifier, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			req := c.Request()
			stripIdentity(req.Header)

			tok, ok := tokens.FromAuthorization(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				m.Observe("gateway_verify", "missing_token", started)
				loggingmw.SetAuthOutcome(c, "missing_token")
				return echo.NewHTTPError(http.StatusUnauthorized, "No token provided").SetInternal(MissingToken)
			}

			claims, err := v.Verify(req.Context(), tok)
			switch {
			case err == nil:
			case errors.Is(err, tokens.ErrInvalidToken):
				m.Observe("gateway_verify", "invalid_token", started)
				loggingmw.SetAuthOutcome(c, "invalid_token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
			default:
				m.Observe("gateway_verify", "unavailable", started)
				loggingmw.SetAuthOutcome(c, "unavailable")
				logging.FromContext(req.Context()).Error("auth_verify_failed", "error", err)
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication service unavailable").SetInternal(err)
			}
			m.Observe("gateway_verify", "success", started)
			loggingmw.SetAuthOutcome(c, "success")
			loggingmw.SetIdentity(c, claims.UserID, claims.TenantID)

			perms := make([]string, 0, len(claims.Permissions))
			for _, p := range claims.Permissions {
				perms = append(perms, p.String())
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxTenantID, claims.TenantID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxPermissions, claims.Permissions)
			c.Set(CtxToken, tok)

			req.Header.Set(HeaderUserID, claims.UserID)
			req.Header.Set(HeaderTenantID, claims.TenantID)
			req.Header.Set(HeaderEmail, claims.Email)
			req.Header.Set(HeaderPermissions, strings.Join(perms, ","))

			return next(c)
		}
	}
}

// stripIdentity drops identity headers a client may have forged.
func stripIdentity(h http.Header) {
	for k := range h {
		if strings.HasPrefix(http.CanonicalHeaderKey(k), identityHeaderPrefix) {
			h.Del(k)
		}
	}
}
