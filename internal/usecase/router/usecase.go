package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/routing"
	"invoice-approval-engine/pkg/id"
)

// Usecase resolves the router of an organization and manages routing policies.
type Usecase struct {
	policies routing.Repository
	fallback *Router
	audit    audit.Recorder
	log      zerolog.Logger
}

// NewUsecase: fallback serves organizations without a stored policy.
func NewUsecase(policies routing.Repository, fallback *Router, rec audit.Recorder, log zerolog.Logger) *Usecase {
	if fallback == nil {
		fallback = MustDefault()
	}
	return &Usecase{policies: policies, fallback: fallback, audit: rec, log: log.With().Str("component", "router").Logger()}
}

// For returns the organization's router.
func (u *Usecase) For(ctx context.Context, organizationID string) (*Router, error) {
	if u.policies == nil {
		return u.fallback, nil
	}
	p, err := u.policies.GetByOrganization(ctx, organizationID)
	if errors.Is(err, routing.ErrNotFound) {
		return u.fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load routing policy: %w", err)
	}
	r, err := New(p.Thresholds.Data(), p.EscalationThreshold)
	if err != nil {
		u.log.Error().Err(err).Str("organization_id", organizationID).Msg("stored routing policy is malformed")
		return nil, err
	}
	return r, nil
}

// PolicyInput replaces an organization's thresholds.
type PolicyInput struct {
	OrganizationID      string
	Thresholds          []routing.Threshold
	EscalationThreshold decimal.Decimal
	ActorID             string
}

// SavePolicy validates and stores the table. Malformed tables are rejected.
func (u *Usecase) SavePolicy(ctx context.Context, in PolicyInput) (*Router, error) {
	r, err := New(in.Thresholds, in.EscalationThreshold)
	if err != nil {
		return nil, err
	}
	p := &routing.Policy{
		OrganizationID:      in.OrganizationID,
		Thresholds:          datatypes.NewJSONType(r.Thresholds()),
		EscalationThreshold: in.EscalationThreshold,
	}
	if err := u.policies.Upsert(ctx, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("organization_id", in.OrganizationID).Int("tiers", len(in.Thresholds)).Msg("routing policy updated")
	u.appendAudit(ctx, in)
	return r, nil
}

// Preview is the routing outcome for an amount.
type Preview struct {
	Role            Role `json:"role"`
	NeedsEscalation bool `json:"needs_escalation"`
}

func (u *Usecase) Preview(ctx context.Context, organizationID string, amount decimal.Decimal) (*Preview, error) {
	r, err := u.For(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	role, err := r.Route(amount)
	if err != nil {
		return nil, err
	}
	return &Preview{Role: role, NeedsEscalation: r.NeedsEscalation(amount)}, nil
}

func (u *Usecase) appendAudit(ctx context.Context, in PolicyInput) {
	if u.audit == nil {
		return
	}
	e := &audit.Entry{
		EntryID:        id.NewID32(),
		OrganizationID: in.OrganizationID,
		Action:         audit.ActionRoutingUpdated,
		EntityType:     audit.EntityRouting,
		EntityID:       in.OrganizationID,
		ActorID:        in.ActorID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := u.audit.Record(ctx, e); err != nil {
		u.log.Warn().Err(err).Str("action", e.Action).Msg("audit write failed")
	}
}
