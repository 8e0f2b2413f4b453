package repo

import (
	"context"
	"errors"

	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The upserts below back the seed tool. Each is safe to run repeatedly.

func (r *GormRepo) UpsertTenant(ctx context.Context, name string, active bool) (*models.Tenant, error) {
	t := models.Tenant{Name: name, IsActive: active}
	db := r.DB.WithContext(ctx)
	if err := db.Where("name = ?", name).FirstOrCreate(&t).Error; err != nil {
		return nil, err
	}
	if t.IsActive != active {
		if err := db.Model(&t).Update("is_active", active).Error; err != nil {
			return nil, err
		}
		t.IsActive = active
	}
	return &t, nil
}

func (r *GormRepo) UpsertPermission(ctx context.Context, resource, action string) (*models.Permission, error) {
	p := models.Permission{Resource: resource, Action: action}
	err := r.DB.WithContext(ctx).
		Where("resource = ? AND action = ?", resource, action).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) UpsertRole(ctx context.Context, tenantID uuid.UUID, name, description string) (*models.Role, error) {
	role := models.Role{TenantID: tenantID, Name: name, Description: description}
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		Assign(models.Role{Description: description}).
		FirstOrCreate(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) GrantPermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
}

func (r *GormRepo) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error
}

// UpsertUser creates the user or refreshes its hash, names and active flag.
func (r *GormRepo) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	u.Email = normalizeEmail(u.Email)
	var existing models.User
	db := r.DB.WithContext(ctx)
	err := db.Where("tenant_id = ? AND email = ?", u.TenantID, u.Email).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err := db.Create(u).Error; err != nil {
			return nil, err
		}
		return u, nil
	}
	err = db.Model(&existing).Updates(map[string]any{
		"password_hash": u.PasswordHash,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"is_active":     u.IsActive,
	}).Error
	if err != nil {
		return nil, err
	}
	u.ID = existing.ID
	u.CreatedAt = existing.CreatedAt
	return u, nil
}
