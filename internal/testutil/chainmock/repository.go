package chainmock

import (
	"context"

	domain "invoice-approval-engine/internal/domain/chain"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn       func(ctx context.Context, c *domain.ApprovalChain) error
	SaveFn         func(ctx context.Context, c *domain.ApprovalChain) error
	GetByChainIDFn func(ctx context.Context, chainID string) (*domain.ApprovalChain, error)
	ListActiveFn   func(ctx context.Context, organizationID string) ([]*domain.ApprovalChain, error)
	MaxReminderFn  func(ctx context.Context) (int, error)
}

// Static serves ListActive and GetByChainID from a fixed slice.
func Static(chains ...*domain.ApprovalChain) *Repo {
	return &Repo{
		ListActiveFn: func(ctx context.Context, org string) ([]*domain.ApprovalChain, error) {
			var out []*domain.ApprovalChain
			for _, c := range chains {
				if c.OrganizationID == org && c.IsActive {
					out = append(out, c)
				}
			}
			return out, nil
		},
		GetByChainIDFn: func(ctx context.Context, chainID string) (*domain.ApprovalChain, error) {
			for _, c := range chains {
				if c.ChainID == chainID {
					return c, nil
				}
			}
			return nil, domain.ErrNotFound
		},
	}
}

func (m *Repo) Create(ctx context.Context, c *domain.ApprovalChain) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, c)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, c *domain.ApprovalChain) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, c)
	}
	return nil
}

func (m *Repo) GetByChainID(ctx context.Context, chainID string) (*domain.ApprovalChain, error) {
	if m.GetByChainIDFn != nil {
		return m.GetByChainIDFn(ctx, chainID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListActive(ctx context.Context, organizationID string) ([]*domain.ApprovalChain, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx, organizationID)
	}
	return nil, context.Canceled
}

func (m *Repo) MaxReminderHours(ctx context.Context) (int, error) {
	if m.MaxReminderFn != nil {
		return m.MaxReminderFn(ctx)
	}
	return 0, context.Canceled
}
