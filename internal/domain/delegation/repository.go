package delegation

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, d *DelegatedApproval) error
	GetByDelegationID(ctx context.Context, delegationID string) (*DelegatedApproval, error)
	// ListActiveForDelegator returns active delegations whose window contains at.
	ListActiveForDelegator(ctx context.Context, delegatorID string, at time.Time) ([]*DelegatedApproval, error)
	// Deactivate reports false when the delegation was already inactive.
	Deactivate(ctx context.Context, delegationID string) (bool, error)
}
