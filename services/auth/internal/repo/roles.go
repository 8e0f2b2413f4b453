package repo

import (
	"context"

	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

func (r *GormRepo) RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	var roles []models.Role
	err := r.DB.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRepo) PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.DB.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}
