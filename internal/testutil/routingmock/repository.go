package routingmock

import (
	"context"

	domain "invoice-approval-engine/internal/domain/routing"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	GetByOrganizationFn func(ctx context.Context, organizationID string) (*domain.Policy, error)
	UpsertFn            func(ctx context.Context, p *domain.Policy) error
}

func (m *Repo) GetByOrganization(ctx context.Context, organizationID string) (*domain.Policy, error) {
	if m.GetByOrganizationFn != nil {
		return m.GetByOrganizationFn(ctx, organizationID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) Upsert(ctx context.Context, p *domain.Policy) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, p)
	}
	return nil
}
