package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	chainDomain "invoice-approval-engine/internal/domain/chain"
)

var _ chainDomain.Repository = (*ChainRepository)(nil)

type ChainRepository struct{ db *gorm.DB }

func NewChainRepository(db *gorm.DB) *ChainRepository { return &ChainRepository{db: db} }

func (r *ChainRepository) Create(ctx context.Context, c *chainDomain.ApprovalChain) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ChainRepository) Save(ctx context.Context, c *chainDomain.ApprovalChain) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *ChainRepository) GetByChainID(ctx context.Context, chainID string) (*chainDomain.ApprovalChain, error) {
	var out chainDomain.ApprovalChain
	err := r.db.WithContext(ctx).Where("chain_id = ?", chainID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chainDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ChainRepository) ListActive(ctx context.Context, organizationID string) ([]*chainDomain.ApprovalChain, error) {
	var out []*chainDomain.ApprovalChain
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationID, true).
		Order("priority DESC, chain_id ASC").
		Find(&out).Error
	return out, err
}

func (r *ChainRepository) MaxReminderHours(ctx context.Context) (int, error) {
	var hours int
	err := r.db.WithContext(ctx).
		Model(&chainDomain.ApprovalChain{}).
		Select("COALESCE(MAX(reminder_hours), 0)").
		Scan(&hours).Error
	return hours, err
}
