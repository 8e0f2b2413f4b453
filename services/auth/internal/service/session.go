package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/audit"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/google/uuid"
)

// Verify resolves an access token to its claims. With revocable sessions the
// token must also still belong to a live session of an active user.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (claims *tokens.AccessClaims, err error) {
	started := time.Now()
	defer func() { s.observe("verify", started, err) }()

	claims, err = s.Codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !s.Policy.RevocableSessions {
		return claims, nil
	}

	sess, err := s.Sessions.FindSessionByToken(ctx, tokens.Digest(accessToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess.UserID.String() != claims.UserID {
		return nil, ErrInvalidToken
	}
	if _, err := s.liveSession(ctx, sess); err != nil {
		if errors.Is(err, errSessionGone) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return claims, nil
}

var errSessionGone = errors.New("session gone")

// liveSession checks expiry and account state, deleting the row when it can
// no longer be used. It returns the session's user on success.
func (s *AuthService) liveSession(ctx context.Context, sess *models.Session) (*models.User, error) {
	l := logging.FromContext(ctx)
	if !s.now().Before(sess.ExpiresAt) {
		s.dropSession(ctx, sess.ID, "expired")
		return nil, errSessionGone
	}
	user, err := s.Users.FindUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.dropSession(ctx, sess.ID, "user_missing")
			return nil, errSessionGone
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !active(user) {
		l.Warn("session_rejected", "reason", "account_inactive", "user_id", user.ID)
		s.dropSession(ctx, sess.ID, "account_inactive")
		return nil, errSessionGone
	}
	return user, nil
}

func (s *AuthService) dropSession(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.Sessions.DeleteSession(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("session_delete_failed", "session_id", id, "reason", reason, "error", err)
	}
}

type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
}

// Refresh mints a new access token for the session the refresh token was
// issued with and overwrites the stored one. The refresh token itself stays
// valid until the session ends.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *RefreshResult, err error) {
	started := time.Now()
	defer func() { s.observe("refresh", started, err) }()
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	sess, err := s.Sessions.FindSessionByRefreshToken(ctx, tokens.Digest(refreshToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess.UserID.String() != claims.UserID {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.liveSession(ctx, sess)
	if err != nil {
		if errors.Is(err, errSessionGone) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	perms, err := s.permissionsFor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	access := s.accessClaims(user, sess.ID, sess.Rotation+1, perms)
	accessToken, err := s.Codec.IssueAccess(access)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	if err := s.Sessions.UpdateSessionToken(ctx, sess.ID, tokens.Digest(accessToken)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	e := audit.NewEvent(audit.ActionRefresh, s.now())
	e.UserID = uuidPtr(user.ID)
	e.TenantID = uuidPtr(user.TenantID)
	s.record(ctx, e)

	l.Info("refresh_successful", "user_id", user.ID)
	return &RefreshResult{AccessToken: accessToken, AccessExpiresAt: access.ExpiresAt.Time}, nil
}

// Logout deletes every session holding the access token. Unknown, expired
// and already revoked tokens are not errors.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (err error) {
	started := time.Now()
	defer func() { s.observe("logout", started, err) }()

	if accessToken == "" {
		return nil
	}
	n, err := s.Sessions.DeleteSessionsByToken(ctx, tokens.Digest(accessToken))
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if n == 0 {
		return nil
	}

	e := audit.NewEvent(audit.ActionLogout, s.now())
	if claims, err := s.Codec.VerifyAccess(accessToken); err == nil {
		if id, err := uuid.Parse(claims.UserID); err == nil {
			e.UserID = &id
		}
		if id, err := uuid.Parse(claims.TenantID); err == nil {
			e.TenantID = &id
		}
	}
	s.record(ctx, e)
	logging.FromContext(ctx).Info("logout_successful", "sessions", n)
	return nil
}

// PurgeExpired deletes every session whose expiry has passed.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Sessions.DeleteExpiredSessions(ctx, s.now())
}
