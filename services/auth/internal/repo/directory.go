package repo

import (
	"context"

	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

func (r *GormRepo) ListUsers(ctx context.Context, tenantID uuid.UUID, offset, limit int) (int64, []models.User, error) {
	var total int64
	q := r.DB.WithContext(ctx).Model(&models.User{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.User
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("email ASC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) ListRoles(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
