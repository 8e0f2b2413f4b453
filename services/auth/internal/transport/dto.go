package transport

import (
	"time"

	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	TenantID  string `json:"tenantId"  validate:"required,uuid"`
	Email     string `json:"email"     validate:"required,email,max=255"`
	Password  string `json:"password"  validate:"required,min=8,max=128,password"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100,personname"`
	LastName  string `json:"lastName"  validate:"required,min=1,max=100,personname"`
}

// LoginRequest carries tenantId only for tenant-scoped deployments.
type LoginRequest struct {
	TenantID string `json:"tenantId,omitempty" validate:"omitempty,uuid"`
	Email    string `json:"email"              validate:"required,email"`
	Password string `json:"password"           validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type UserPage struct {
	Items []UserResponse `json:"items"`
	Meta  httpx.PageMeta `json:"meta"`
}

type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

type TenantResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`
}

type AuditEventResponse struct {
	ID        string     `json:"id"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Action    string     `json:"action"`
	IPAddress string     `json:"ipAddress,omitempty"`
	UserAgent string     `json:"userAgent,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func NewAuditEventResponse(l *models.AuditLog) AuditEventResponse {
	return AuditEventResponse{
		ID:        l.ID,
		UserID:    l.UserID,
		Action:    l.Action,
		IPAddress: l.IPAddress,
		UserAgent: l.UserAgent,
		Detail:    l.Detail,
		CreatedAt: l.CreatedAt,
	}
}
