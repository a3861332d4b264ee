package delegation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"invoice-approval-engine/internal/domain/audit"
	domain "invoice-approval-engine/internal/domain/delegation"
	"invoice-approval-engine/pkg/clock"
	"invoice-approval-engine/pkg/id"
)

// Usecase resolves the effective approver of an assignment and manages the
// delegation records behind it.
type Usecase struct {
	repo  domain.Repository
	audit audit.Recorder
	clock clock.Clock
	log   zerolog.Logger
}

func NewUsecase(repo domain.Repository, rec audit.Recorder, clk clock.Clock, log zerolog.Logger) *Usecase {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Usecase{repo: repo, audit: rec, clock: clk, log: log.With().Str("component", "delegation").Logger()}
}

// WithRepository returns a copy reading through repo, used inside a transaction.
func (u *Usecase) WithRepository(repo domain.Repository) *Usecase {
	cp := *u
	cp.repo = repo
	return &cp
}

// Query describes the assignment being resolved.
type Query struct {
	NominalApproverID string
	At                time.Time
	Amount            decimal.Decimal
	Category          string
}

// Result is the effective approver. Delegation is nil when nobody stands in.
type Result struct {
	ApproverID   string
	WasDelegated bool
	Delegation   *domain.DelegatedApproval
}

// Resolve follows a single hop: the delegatee's own delegations are ignored.
// The most specific covering scope wins; among equally specific delegations
// the most recently created one wins and the overlap is logged.
func (u *Usecase) Resolve(ctx context.Context, q Query) (Result, error) {
	nominal := Result{ApproverID: q.NominalApproverID}
	if q.NominalApproverID == "" {
		return nominal, nil
	}
	list, err := u.repo.ListActiveForDelegator(ctx, q.NominalApproverID, q.At)
	if err != nil {
		return Result{}, fmt.Errorf("list delegations: %w", err)
	}

	var covering []*domain.DelegatedApproval
	for _, d := range list {
		if d.DelegateeID == "" || d.DelegateeID == q.NominalApproverID {
			continue
		}
		if d.Covers(q.At, q.Amount, q.Category) {
			covering = append(covering, d)
		}
	}
	if len(covering) == 0 {
		return nominal, nil
	}

	sort.SliceStable(covering, func(i, j int) bool {
		a, b := covering[i], covering[j]
		if a.Scope.Specificity() != b.Scope.Specificity() {
			return a.Scope.Specificity() > b.Scope.Specificity()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.DelegationID > b.DelegationID
	})

	chosen := covering[0]
	if len(covering) > 1 && covering[1].Scope == chosen.Scope {
		ids := make([]string, 0, len(covering))
		for _, d := range covering {
			if d.Scope == chosen.Scope {
				ids = append(ids, d.DelegationID)
			}
		}
		u.log.Warn().
			Str("delegator_id", q.NominalApproverID).
			Str("scope", string(chosen.Scope)).
			Str("chosen", chosen.DelegationID).
			Str("overlapping", strings.Join(ids, ",")).
			Msg("overlapping delegations, most recent wins")
	}
	return Result{ApproverID: chosen.DelegateeID, WasDelegated: true, Delegation: chosen}, nil
}

// CreateInput registers an out-of-office delegation.
type CreateInput struct {
	OrganizationID     string
	DelegatorID        string
	DelegateeID        string
	StartDate          time.Time
	EndDate            time.Time
	Scope              domain.Scope
	SpecificCategories []string
	MaxAmount          *decimal.Decimal
	Reason             *string
	ActorID            string
}

func (u *Usecase) Create(ctx context.Context, in CreateInput) (*domain.DelegatedApproval, error) {
	d := &domain.DelegatedApproval{
		DelegationID:       id.NewID32(),
		OrganizationID:     in.OrganizationID,
		DelegatorID:        in.DelegatorID,
		DelegateeID:        in.DelegateeID,
		StartDate:          in.StartDate.UTC(),
		EndDate:            in.EndDate.UTC(),
		IsActive:           true,
		Scope:              in.Scope,
		SpecificCategories: datatypes.NewJSONType(in.SpecificCategories),
		MaxAmount:          in.MaxAmount,
		Reason:             in.Reason,
		CreatedAt:          u.clock.Now(),
	}
	if d.Scope == "" {
		d.Scope = domain.ScopeAll
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	// overlaps are accepted; resolution picks the most recent one
	existing, err := u.repo.ListActiveForDelegator(ctx, d.DelegatorID, d.StartDate)
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	for _, e := range existing {
		if e.Scope == d.Scope {
			u.log.Warn().Str("delegator_id", d.DelegatorID).Str("existing", e.DelegationID).
				Str("scope", string(d.Scope)).Msg("new delegation overlaps an active one")
		}
	}

	if err := u.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	u.log.Info().Str("delegation_id", d.DelegationID).Str("delegator_id", d.DelegatorID).
		Str("delegatee_id", d.DelegateeID).Str("scope", string(d.Scope)).Msg("delegation created")
	u.appendAudit(ctx, d, audit.ActionDelegationCreated, in.ActorID)
	return d, nil
}

// Revoke deactivates a delegation. Revoking twice is not an error.
func (u *Usecase) Revoke(ctx context.Context, delegationID, actorID string) (*domain.DelegatedApproval, error) {
	d, err := u.repo.GetByDelegationID(ctx, delegationID)
	if err != nil {
		return nil, err
	}
	changed, err := u.repo.Deactivate(ctx, delegationID)
	if err != nil {
		return nil, err
	}
	d.IsActive = false
	if changed {
		u.log.Info().Str("delegation_id", delegationID).Msg("delegation revoked")
		u.appendAudit(ctx, d, audit.ActionDelegationRevoked, actorID)
	}
	return d, nil
}

// ListActive returns the delegator's delegations in effect right now.
func (u *Usecase) ListActive(ctx context.Context, delegatorID string) ([]*domain.DelegatedApproval, error) {
	list, err := u.repo.ListActiveForDelegator(ctx, delegatorID, u.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	return list, nil
}

func (u *Usecase) appendAudit(ctx context.Context, d *domain.DelegatedApproval, action, actorID string) {
	if u.audit == nil {
		return
	}
	e := &audit.Entry{
		EntryID:        id.NewID32(),
		OrganizationID: d.OrganizationID,
		Action:         action,
		EntityType:     audit.EntityDelegation,
		EntityID:       d.DelegationID,
		ActorID:        actorID,
		CreatedAt:      u.clock.Now(),
	}
	if err := u.audit.Record(ctx, e); err != nil {
		u.log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}
