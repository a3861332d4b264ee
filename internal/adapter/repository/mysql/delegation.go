package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	delegationDomain "invoice-approval-engine/internal/domain/delegation"
)

var _ delegationDomain.Repository = (*DelegationRepository)(nil)

type DelegationRepository struct{ db *gorm.DB }

func NewDelegationRepository(db *gorm.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

func (r *DelegationRepository) Create(ctx context.Context, d *delegationDomain.DelegatedApproval) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DelegationRepository) GetByDelegationID(ctx context.Context, delegationID string) (*delegationDomain.DelegatedApproval, error) {
	var out delegationDomain.DelegatedApproval
	err := r.db.WithContext(ctx).Where("delegation_id = ?", delegationID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, delegationDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *DelegationRepository) ListActiveForDelegator(ctx context.Context, delegatorID string, at time.Time) ([]*delegationDomain.DelegatedApproval, error) {
	var out []*delegationDomain.DelegatedApproval
	err := r.db.WithContext(ctx).
		Where("delegator_id = ? AND is_active = ?", delegatorID, true).
		Where("start_date <= ? AND end_date >= ?", at, at).
		Order("created_at DESC, delegation_id DESC").
		Find(&out).Error
	return out, err
}

func (r *DelegationRepository) Deactivate(ctx context.Context, delegationID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&delegationDomain.DelegatedApproval{}).
		Where("delegation_id = ? AND is_active = ?", delegationID, true).
		Update("is_active", false)
	return res.RowsAffected == 1, res.Error
}
