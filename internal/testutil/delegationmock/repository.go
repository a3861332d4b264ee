package delegationmock

import (
	"context"
	"time"

	domain "invoice-approval-engine/internal/domain/delegation"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn                 func(ctx context.Context, d *domain.DelegatedApproval) error
	GetByDelegationIDFn      func(ctx context.Context, delegationID string) (*domain.DelegatedApproval, error)
	ListActiveForDelegatorFn func(ctx context.Context, delegatorID string, at time.Time) ([]*domain.DelegatedApproval, error)
	DeactivateFn             func(ctx context.Context, delegationID string) (bool, error)
}

// Static serves ListActiveForDelegator from a fixed slice, applying the
// active window the way storage does.
func Static(list ...*domain.DelegatedApproval) *Repo {
	return &Repo{
		ListActiveForDelegatorFn: func(ctx context.Context, delegatorID string, at time.Time) ([]*domain.DelegatedApproval, error) {
			var out []*domain.DelegatedApproval
			for _, d := range list {
				if d.DelegatorID == delegatorID && d.InWindow(at) {
					out = append(out, d)
				}
			}
			return out, nil
		},
	}
}

func (m *Repo) Create(ctx context.Context, d *domain.DelegatedApproval) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, d)
	}
	return nil
}

func (m *Repo) GetByDelegationID(ctx context.Context, delegationID string) (*domain.DelegatedApproval, error) {
	if m.GetByDelegationIDFn != nil {
		return m.GetByDelegationIDFn(ctx, delegationID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListActiveForDelegator(ctx context.Context, delegatorID string, at time.Time) ([]*domain.DelegatedApproval, error) {
	if m.ListActiveForDelegatorFn != nil {
		return m.ListActiveForDelegatorFn(ctx, delegatorID, at)
	}
	return nil, context.Canceled
}

func (m *Repo) Deactivate(ctx context.Context, delegationID string) (bool, error) {
	if m.DeactivateFn != nil {
		return m.DeactivateFn(ctx, delegationID)
	}
	return false, nil
}
