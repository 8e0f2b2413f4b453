package repo

import (
	"context"
	"strings"
	"time"

	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindUsersByEmail returns every user with that email across all tenants,
// with the owning tenant preloaded.
func (r *GormRepo) FindUsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).
		Preload("Tenant").
		Where("email = ?", normalizeEmail(email)).
		Order("created_at").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) FindUserByTenantEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Preload("Tenant").
		Where("tenant_id = ? AND email = ?", tenantID, normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Tenant").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, notFound(err)
	}
	return &tenant, nil
}

// CreateUserIfNotExists inserts u unless its tenant already holds the email.
func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	tx := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", u.TenantID, u.Email).
		FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *GormRepo) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
}
