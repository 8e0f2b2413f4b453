package httpserver

import (
	"context"
	"net/http"

	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/pkg/logging"
	loggingmw "github.com/complyhub/platform/pkg/middleware/logging"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/complyhub/platform/services/auth/internal/service"
	"github.com/complyhub/platform/services/auth/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Service is the part of service.AuthService the handlers call.
type Service interface {
	Register(ctx context.Context, p service.RegisterParams) (*models.User, error)
	Login(ctx context.Context, p service.LoginParams) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.RefreshResult, error)
	Logout(ctx context.Context, accessToken string) error
	Verify(ctx context.Context, accessToken string) (*tokens.AccessClaims, error)
}

type AuthHTTP struct {
	Svc Service
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return c.Validate(req)
}

func bearer(c echo.Context) (string, error) {
	tok, ok := tokens.FromAuthorization(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "No token provided")
	}
	return tok, nil
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.Register(ctx, service.RegisterParams{
		TenantID:  uuid.MustParse(req.TenantID),
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return httpx.OK(c, http.StatusCreated, "User registered successfully", transport.NewUserResponse(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	params := service.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
	if req.TenantID != "" {
		id := uuid.MustParse(req.TenantID)
		params.TenantID = &id
	}

	res, err := h.Svc.Login(ctx, params)
	if err != nil {
		return toHTTPError(err)
	}
	return httpx.OK(c, http.StatusOK, "Login successful", transport.LoginResponse{
		User:         transport.NewUserResponse(res.User),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.RefreshRequest
	if err := bindValid(c, &req); err != nil {
		logging.FromContext(ctx).Warn("refresh_error", "handler", "auth_refresh", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return toHTTPError(err)
	}
	return httpx.OK(c, http.StatusOK, "Token refreshed successfully", transport.RefreshResponse{AccessToken: res.AccessToken})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	tok, err := bearer(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Logout(c.Request().Context(), tok); err != nil {
		return toHTTPError(err)
	}
	return httpx.OK(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHTTP) Verify(c echo.Context) error {
	claims, err := authenticate(c, h.Svc)
	if err != nil {
		return err
	}
	return httpx.OK(c, http.StatusOK, "Token is valid", claims)
}

// authenticate verifies the bearer token of c and records the outcome and
// the caller on the request log.
func authenticate(c echo.Context, svc Service) (*tokens.AccessClaims, error) {
	tok, err := bearer(c)
	if err != nil {
		loggingmw.SetAuthOutcome(c, "missing_token")
		return nil, err
	}
	claims, err := svc.Verify(c.Request().Context(), tok)
	if err != nil {
		code, _ := statusFor(err)
		if code == http.StatusUnauthorized {
			loggingmw.SetAuthOutcome(c, "invalid_token")
		} else {
			loggingmw.SetAuthOutcome(c, "error")
		}
		return nil, toHTTPError(err)
	}
	loggingmw.SetAuthOutcome(c, "success")
	loggingmw.SetIdentity(c, claims.UserID, claims.TenantID)
	return claims, nil
}
