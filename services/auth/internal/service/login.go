package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkghash "github.com/complyhub/platform/pkg/hash"
	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/audit"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/google/uuid"
)

type LoginParams struct {
	TenantID  *uuid.UUID
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	User             *models.User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionExpiresAt time.Time
}

func (s *AuthService) Login(ctx context.Context, p LoginParams) (res *LoginResult, err error) {
	started := time.Now()
	defer func() { s.observe("login", started, err) }()

	l := logging.FromContext(ctx).With("svc", "auth.login")
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return nil, required("email")
	}
	if p.Password == "" {
		return nil, required("password")
	}

	user, err := s.findCandidate(ctx, p)
	if err != nil {
		if !errors.Is(err, ErrValidation) {
			l.Error("login_error", "reason", "lookup", "error", err)
		}
		return nil, err
	}

	failed := func(reason string, user *models.User) error {
		l.Warn("login_failed", "reason", reason)
		e := s.event(audit.ActionLoginFailed, p)
		e.Detail = reason
		if user != nil {
			e.UserID = uuidPtr(user.ID)
			e.TenantID = uuidPtr(user.TenantID)
		}
		s.record(ctx, e)
		return ErrInvalidCredentials
	}

	if user == nil {
		pkghash.BurnCompare(p.Password, s.Policy.BcryptCost)
		return nil, failed("unknown_email", nil)
	}
	if !pkghash.CheckPassword(user.PasswordHash, p.Password) {
		return nil, failed("bad_password", user)
	}

	if user.Tenant == nil {
		t, err := s.Users.FindTenant(ctx, user.TenantID)
		if err != nil {
			return nil, fmt.Errorf("load tenant: %w", err)
		}
		user.Tenant = t
	}
	if !user.Tenant.IsActive {
		l.Warn("login_failed", "reason", "tenant_inactive", "user_id", user.ID)
		return nil, ErrTenantInactive
	}
	if !user.IsActive {
		l.Warn("login_failed", "reason", "user_inactive", "user_id", user.ID)
		return nil, ErrUserInactive
	}

	perms, err := s.permissionsFor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}

	now := s.now()
	sessionID := uuid.New()
	access := s.accessClaims(user, sessionID, 0, perms)
	accessToken, err := s.Codec.IssueAccess(access)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh := &tokens.RefreshClaims{UserID: user.ID.String()}
	refresh.Subject = user.ID.String()
	refresh.ID = sessionID.String()
	refreshToken, err := s.Codec.IssueRefresh(refresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session := &models.Session{
		ID:           sessionID,
		UserID:       user.ID,
		Token:        tokens.Digest(accessToken),
		RefreshToken: tokens.Digest(refreshToken),
		IPAddress:    strPtr(p.IPAddress),
		UserAgent:    strPtr(p.UserAgent),
		ExpiresAt:    now.Add(s.Policy.SessionTTL),
	}
	if err := s.Sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		l.Warn("touch_last_login_failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	e := s.event(audit.ActionLogin, p)
	e.UserID = uuidPtr(user.ID)
	e.TenantID = uuidPtr(user.TenantID)
	s.record(ctx, e)

	l.Info("login_successful", "user_id", user.ID, "tenant_id", user.TenantID)
	return &LoginResult{
		User:             user,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  access.ExpiresAt.Time,
		RefreshExpiresAt: refresh.ExpiresAt.Time,
		SessionExpiresAt: session.ExpiresAt,
	}, nil
}

// findCandidate returns nil, nil when no single user matches.
func (s *AuthService) findCandidate(ctx context.Context, p LoginParams) (*models.User, error) {
	if s.Policy.LoginScope == ScopeTenant {
		if p.TenantID == nil {
			return nil, required("tenantId")
		}
		u, err := s.Users.FindUserByTenantEmail(ctx, *p.TenantID, p.Email)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return u, err
	}

	users, err := s.Users.FindUsersByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, nil
	case 1:
		return &users[0], nil
	}

	// Several tenants hold this email. Only a single active account is
	// unambiguous; anything else is refused without saying why.
	var live []models.User
	for i := range users {
		if active(&users[i]) {
			live = append(live, users[i])
		}
	}
	if len(live) == 1 {
		return &live[0], nil
	}
	logging.FromContext(ctx).Warn("ambiguous_email", "candidates", len(users), "active", len(live))
	return nil, nil
}

func (s *AuthService) event(action audit.Action, p LoginParams) audit.Event {
	e := audit.NewEvent(action, s.now())
	e.IPAddress = p.IPAddress
	e.UserAgent = p.UserAgent
	return e
}
