package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkghash "github.com/complyhub/platform/pkg/hash"
	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/services/auth/internal/audit"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/google/uuid"
)

type RegisterParams struct {
	TenantID  uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	IPAddress string
	UserAgent string
}

func (s *AuthService) Register(ctx context.Context, p RegisterParams) (user *models.User, err error) {
	started := time.Now()
	defer func() { s.observe("register", started, err) }()
	l := logging.FromContext(ctx).With("svc", "auth.register")

	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	switch {
	case p.TenantID == uuid.Nil:
		return nil, required("tenantId")
	case p.Email == "":
		return nil, required("email")
	case p.Password == "":
		return nil, required("password")
	}

	tenant, err := s.Users.FindTenant(ctx, p.TenantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("register_failed", "reason", "tenant_not_found", "tenant_id", p.TenantID)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.IsActive {
		l.Warn("register_failed", "reason", "tenant_inactive", "tenant_id", p.TenantID)
		return nil, ErrTenantInactive
	}

	pwHash, err := pkghash.HashPassword(p.Password, s.Policy.BcryptCost)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user = &models.User{
		TenantID:     p.TenantID,
		Email:        p.Email,
		PasswordHash: pwHash,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		IsActive:     true,
	}
	if err := s.Users.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_failed", "reason", "user already exist")
			return nil, ErrConflict
		}
		l.Error("register_error", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	e := audit.NewEvent(audit.ActionRegister, s.now())
	e.UserID = uuidPtr(user.ID)
	e.TenantID = uuidPtr(user.TenantID)
	e.IPAddress = p.IPAddress
	e.UserAgent = p.UserAgent
	s.record(ctx, e)

	l.Info("register_successful", "user_id", user.ID)
	return user, nil
}
