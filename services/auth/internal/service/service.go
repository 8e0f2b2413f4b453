package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/audit"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTenantInactive      = errors.New("tenant inactive")
	ErrUserInactive        = errors.New("user inactive")
	ErrConflict            = errors.New("user already exists")
	ErrNotFound            = errors.New("not found")
)

type CredentialStore interface {
	FindUsersByEmail(ctx context.Context, email string) ([]models.User, error)
	FindUserByTenantEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindSessionByToken(ctx context.Context, digest string) (*models.Session, error)
	FindSessionByRefreshToken(ctx context.Context, digest string) (*models.Session, error)
	UpdateSessionToken(ctx context.Context, id uuid.UUID, digest string) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteSessionsByToken(ctx context.Context, digest string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type PermissionResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) ([]tokens.Permission, error)
}

// FieldError is a validation failure tied to one request field. It matches
// ErrValidation under errors.Is.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return "validation failed: " + e.Message }
func (e *FieldError) Unwrap() error { return ErrValidation }

func required(field string) error {
	return &FieldError{Field: field, Message: field + " is required"}
}

type LoginScope string

const (
	// ScopeGlobal finds login candidates by email across every tenant.
	ScopeGlobal LoginScope = "global"
	// ScopeTenant requires the caller to name the tenant.
	ScopeTenant LoginScope = "tenant"
)

// Policy holds the deployment choices the service must not guess at.
type Policy struct {
	SessionTTL time.Duration
	// RevocableSessions makes verify require a live session row, so logout
	// invalidates access tokens before they expire. When false verify is
	// signature and expiry only and never touches the store.
	RevocableSessions bool
	LoginScope        LoginScope
	EmbedPermissions  bool
	BcryptCost        int
}

type AuthService struct {
	Users       CredentialStore
	Sessions    SessionStore
	Permissions PermissionResolver
	Codec       *tokens.Codec
	Audit       audit.Recorder
	Metrics     *metrics.Metrics
	Policy      Policy
	Now         func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) record(ctx context.Context, e audit.Event) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("audit_failed", "action", e.Action, "error", err)
	}
}

func (s *AuthService) observe(op string, started time.Time, err error) {
	s.Metrics.Observe(op, outcome(err), started)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "invalid_input"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_token"
	case errors.Is(err, ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// active reports whether the user and its tenant may hold a session.
func active(u *models.User) bool {
	return u.IsActive && u.Tenant != nil && u.Tenant.IsActive
}

func (s *AuthService) permissionsFor(ctx context.Context, userID uuid.UUID) ([]tokens.Permission, error) {
	if !s.Policy.EmbedPermissions {
		return nil, nil
	}
	return s.Permissions.Resolve(ctx, userID)
}

// accessID is the jti of the access token minted at the given rotation of a
// session. Tokens minted within the same second still differ.
func accessID(sessionID uuid.UUID, rotation int) string {
	return fmt.Sprintf("%s.%d", sessionID, rotation)
}

func (s *AuthService) accessClaims(u *models.User, sessionID uuid.UUID, rotation int, perms []tokens.Permission) *tokens.AccessClaims {
	c := &tokens.AccessClaims{
		UserID:      u.ID.String(),
		TenantID:    u.TenantID.String(),
		Email:       u.Email,
		Permissions: perms,
	}
	c.Subject = u.ID.String()
	c.ID = accessID(sessionID, rotation)
	return c
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
