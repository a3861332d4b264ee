package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	routingDomain "invoice-approval-engine/internal/domain/routing"
)

var _ routingDomain.Repository = (*RoutingRepository)(nil)

type RoutingRepository struct{ db *gorm.DB }

func NewRoutingRepository(db *gorm.DB) *RoutingRepository { return &RoutingRepository{db: db} }

func (r *RoutingRepository) GetByOrganization(ctx context.Context, organizationID string) (*routingDomain.Policy, error) {
	var out routingDomain.Policy
	err := r.db.WithContext(ctx).Where("organization_id = ?", organizationID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, routingDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RoutingRepository) Upsert(ctx context.Context, p *routingDomain.Policy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"thresholds", "escalation_threshold", "updated_at"}),
		}).
		Create(p).Error
}
