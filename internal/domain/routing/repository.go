package routing

import "context"

type Repository interface {
	GetByOrganization(ctx context.Context, organizationID string) (*Policy, error)
	// Upsert replaces the organization's policy.
	Upsert(ctx context.Context, p *Policy) error
}
