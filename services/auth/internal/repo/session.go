package repo

import (
	"context"
	"time"

	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateSession(ctx context.Context, s *models.Session) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

// FindSessionByToken looks a session up by access token digest.
func (r *GormRepo) FindSessionByToken(ctx context.Context, digest string) (*models.Session, error) {
	var s models.Session
	if err := r.DB.WithContext(ctx).Where("token = ?", digest).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *GormRepo) FindSessionByRefreshToken(ctx context.Context, digest string) (*models.Session, error) {
	var s models.Session
	if err := r.DB.WithContext(ctx).Where("refresh_token = ?", digest).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// UpdateSessionToken overwrites the stored access token digest of one session
// and bumps its rotation counter.
func (r *GormRepo) UpdateSessionToken(ctx context.Context, id uuid.UUID, digest string) error {
	tx := r.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{"token": digest, "rotation": gorm.Expr("rotation + 1")})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error
}

// DeleteSessionsByToken removes every session holding the access token digest.
func (r *GormRepo) DeleteSessionsByToken(ctx context.Context, digest string) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("token = ?", digest).Delete(&models.Session{})
	return tx.RowsAffected, tx.Error
}

func (r *GormRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	return tx.RowsAffected, tx.Error
}
