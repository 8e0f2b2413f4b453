package repo

import (
	"context"

	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

func (r *GormRepo) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

// AuditQuery filters audit rows. Zero fields do not filter.
type AuditQuery struct {
	TenantID uuid.UUID
	Action   string
	Limit    int
}

// ListAuditLogs returns matching rows, newest first.
func (r *GormRepo) ListAuditLogs(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	db := r.DB.WithContext(ctx).Order("created_at DESC, id DESC")
	if q.TenantID != uuid.Nil {
		db = db.Where("tenant_id = ?", q.TenantID)
	}
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var out []models.AuditLog
	if err := db.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
