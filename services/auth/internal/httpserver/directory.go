package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/complyhub/platform/services/auth/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const ctxClaims = "claims"

// Directory is the read-only view of users, roles and tenants. Every query
// is confined to the caller's own tenant.
type Directory interface {
	ListUsers(ctx context.Context, tenantID uuid.UUID, offset, limit int) (int64, []models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListRoles(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error)
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListAuditLogs(ctx context.Context, q repo.AuditQuery) ([]models.AuditLog, error)
}

// PermissionSource reports what a user may do right now, independent of
// what their token carries.
type PermissionSource interface {
	Resolve(ctx context.Context, userID uuid.UUID) ([]tokens.Permission, error)
}

type DirectoryHTTP struct {
	Dir         Directory
	Permissions PermissionSource
}

const defaultAuditLimit = 50

// RequireAuth verifies the bearer token with the same rules as /auth/verify.
func RequireAuth(svc Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := authenticate(c, svc)
			if err != nil {
				return err
			}
			c.Set(ctxClaims, claims)
			return next(c)
		}
	}
}

func callerTenant(c echo.Context) (uuid.UUID, error) {
	claims, _ := c.Get(ctxClaims).(*tokens.AccessClaims)
	if claims == nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}
	id, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
	}
	return id, nil
}

func (h *DirectoryHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := callerTenant(c)
	if err != nil {
		return err
	}

	page := httpx.ParseIntDefault(c.QueryParam("page"), 1)
	size := httpx.ParseIntDefault(c.QueryParam("size"), httpx.DefaultPageSize)
	offset, limit := httpx.Calculate(page, size)

	total, users, err := h.Dir.ListUsers(ctx, tenantID, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_users_error", "handler", "directory.list_users", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list users").SetInternal(err)
	}

	items := make([]transport.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, transport.NewUserResponse(&users[i]))
	}
	return httpx.OK(c, http.StatusOK, "Users retrieved", transport.UserPage{
		Items: items,
		Meta:  httpx.NewPageMeta(offset, limit, total),
	})
}

func (h *DirectoryHTTP) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := callerTenant(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be a valid UUID")
	}

	user, err := h.Dir.FindUserByID(ctx, id)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get user").SetInternal(err)
	}
	// Users of other tenants are reported as missing.
	if user == nil || user.TenantID != tenantID {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return httpx.OK(c, http.StatusOK, "User retrieved", transport.NewUserResponse(user))
}

func (h *DirectoryHTTP) ListRoles(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := callerTenant(c)
	if err != nil {
		return err
	}
	roles, err := h.Dir.ListRoles(ctx, tenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list roles").SetInternal(err)
	}
	out := make([]transport.RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, transport.RoleResponse{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return httpx.OK(c, http.StatusOK, "Roles retrieved", out)
}

func (h *DirectoryHTTP) GetTenant(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := callerTenant(c)
	if err != nil {
		return err
	}
	t, err := h.Dir.FindTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get tenant").SetInternal(err)
	}
	return httpx.OK(c, http.StatusOK, "Tenant retrieved", transport.TenantResponse{ID: t.ID, Name: t.Name, IsActive: t.IsActive})
}

// AuditEvents lists the authentication trail of the caller's tenant. The
// caller needs the audit:read permission.
func (h *DirectoryHTTP) AuditEvents(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := callerTenant(c)
	if err != nil {
		return err
	}
	claims := c.Get(ctxClaims).(*tokens.AccessClaims)
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
	}
	perms, err := h.Permissions.Resolve(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve permissions").SetInternal(err)
	}
	if !(&tokens.AccessClaims{Permissions: perms}).Has("audit", "read") {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	limit := httpx.ParseIntDefault(c.QueryParam("limit"), defaultAuditLimit)
	if limit < 1 || limit > httpx.MaxPageSize {
		limit = httpx.MaxPageSize
	}
	logs, err := h.Dir.ListAuditLogs(ctx, repo.AuditQuery{
		TenantID: tenantID,
		Action:   strings.ToUpper(c.QueryParam("action")),
		Limit:    limit,
	})
	if err != nil {
		logging.FromContext(ctx).Error("list_audit_error", "handler", "directory.audit_events", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list audit events").SetInternal(err)
	}

	out := make([]transport.AuditEventResponse, 0, len(logs))
	for i := range logs {
		out = append(out, transport.NewAuditEventResponse(&logs[i]))
	}
	return httpx.OK(c, http.StatusOK, "Audit events retrieved", out)
}
