package mysql

import (
	"context"

	"gorm.io/gorm"

	auditDomain "invoice-approval-engine/internal/domain/audit"
)

var _ auditDomain.Recorder = (*AuditRepository)(nil)

type AuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Record(ctx context.Context, e *auditDomain.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*auditDomain.Entry, error) {
	var out []*auditDomain.Entry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
