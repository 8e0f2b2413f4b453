package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name      string    `gorm:"not null"              json:"name"`
	IsActive  bool      `gorm:"not null"              json:"isActive"`
	CreatedAt time.Time `                             json:"createdAt"`
	UpdatedAt time.Time `                             json:"updatedAt"`
}

// User emails are unique per tenant only.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"                              json:"id"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email" json:"tenantId"`
	Email        string     `gorm:"not null;uniqueIndex:idx_users_tenant_email;index"  json:"email"`
	PasswordHash string     `gorm:"not null"                                          json:"-"`
	FirstName    string     `gorm:"not null"                                          json:"firstName"`
	LastName     string     `gorm:"not null"                                          json:"lastName"`
	IsActive     bool       `gorm:"not null"                                          json:"isActive"`
	LastLoginAt  *time.Time `                                                         json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `                                                         json:"createdAt"`
	UpdatedAt    time.Time  `                                                         json:"updatedAt"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"-"`
}

type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"                              json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_roles_tenant_name" json:"tenantId"`
	Name        string    `gorm:"not null;uniqueIndex:idx_roles_tenant_name"         json:"name"`
	Description string    `                                                         json:"description,omitempty"`
	CreatedAt   time.Time `                                                         json:"createdAt"`
}

type Permission struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"                                  json:"id"`
	Resource string    `gorm:"not null;uniqueIndex:idx_permissions_resource_action" json:"resource"`
	Action   string    `gorm:"not null;uniqueIndex:idx_permissions_resource_action" json:"action"`
}

type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"roleId"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"permissionId"`
}

type UserRole struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	RoleID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"roleId"`
}

// Session pairs one login's tokens to a user. Token and RefreshToken hold
// SHA-256 digests, never the raw token strings.
type Session struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"   json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	Token        string    `gorm:"not null;uniqueIndex"   json:"-"`
	RefreshToken string    `gorm:"not null;uniqueIndex"   json:"-"`
	Rotation     int       `gorm:"not null;default:0"     json:"-"`
	IPAddress    *string   `                              json:"ipAddress,omitempty"`
	UserAgent    *string   `                              json:"userAgent,omitempty"`
	ExpiresAt    time.Time `gorm:"not null;index"         json:"expiresAt"`
	CreatedAt    time.Time `                              json:"createdAt"`
	UpdatedAt    time.Time `                              json:"updatedAt"`
}

type AuditLog struct {
	ID        string     `gorm:"primaryKey;size:26" json:"id"`
	TenantID  *uuid.UUID `gorm:"type:uuid;index"    json:"tenantId,omitempty"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"    json:"userId,omitempty"`
	Action    string     `gorm:"not null;index"     json:"action"`
	Resource  string     `gorm:"not null"           json:"resource"`
	IPAddress string     `                          json:"ipAddress,omitempty"`
	UserAgent string     `                          json:"userAgent,omitempty"`
	Detail    string     `                          json:"detail,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index"     json:"createdAt"`
}

func (t *Tenant) BeforeCreate(*gorm.DB) error     { ensureID(&t.ID); return nil }
func (u *User) BeforeCreate(*gorm.DB) error       { ensureID(&u.ID); return nil }
func (r *Role) BeforeCreate(*gorm.DB) error       { ensureID(&r.ID); return nil }
func (p *Permission) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
func (s *Session) BeforeCreate(*gorm.DB) error    { ensureID(&s.ID); return nil }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every table owned by the auth service, in migration order.
func All() []any {
	return []any{
		&Tenant{}, &User{}, &Role{}, &Permission{},
		&RolePermission{}, &UserRole{}, &Session{}, &AuditLog{},
	}
}
