package chain

import "context"

type Repository interface {
	Create(ctx context.Context, c *ApprovalChain) error
	Save(ctx context.Context, c *ApprovalChain) error
	GetByChainID(ctx context.Context, chainID string) (*ApprovalChain, error)
	// ListActive returns the organization's active chains.
	ListActive(ctx context.Context, organizationID string) ([]*ApprovalChain, error)
	// MaxReminderHours is the largest reminder_hours of any chain, active or
	// not, since live approvals may belong to a deactivated chain.
	MaxReminderHours(ctx context.Context) (int, error)
}
