package audit

import (
	"context"
	"fmt"

	"github.com/complyhub/platform/services/auth/internal/models"
)

type Store interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
}

// StoreRecorder appends events to the audit_logs table.
type StoreRecorder struct {
	Store Store
}

func (s *StoreRecorder) Record(ctx context.Context, e Event) error {
	row := models.AuditLog{
		ID:        e.ID,
		TenantID:  e.TenantID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		Resource:  e.Resource,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Detail:    e.Detail,
		CreatedAt: e.At,
	}
	if err := s.Store.CreateAuditLog(ctx, &row); err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	return nil
}
