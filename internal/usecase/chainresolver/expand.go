package chainresolver

import (
	"context"
	"errors"
	"fmt"

	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/usecase/router"
)

var ErrNoEligibleApprover = errors.New("no eligible approver")

// NoEligibleApproverError means a level resolved to nobody.
type NoEligibleApproverError struct {
	ChainID string
	Level   int
	Role    string
}

func (e *NoEligibleApproverError) Error() string {
	return fmt.Sprintf("chain %s level %d: no eligible approver for role %q", e.ChainID, e.Level, e.Role)
}

func (e *NoEligibleApproverError) Is(target error) bool { return target == ErrNoEligibleApprover }

// PlannedLevel is a chain level with its approvers resolved.
type PlannedLevel struct {
	Number       int
	Role         string
	ApproverIDs  []string
	AlternateIDs []string
	RequireAll   bool
	// Mandatory marks a level added for senior sign-off above the
	// escalation threshold.
	Mandatory bool
}

// Primary is the approver of a single-signature level.
func (l PlannedLevel) Primary() string {
	if len(l.ApproverIDs) == 0 {
		return ""
	}
	return l.ApproverIDs[0]
}

// Plan is the expanded chain for one invoice.
type Plan struct {
	Chain           *chain.ApprovalChain
	Levels          []PlannedLevel
	RoutedRole      router.Role
	NeedsEscalation bool
}

// Expand resolves every level of c for the invoice. Router-driven levels take
// the routed role. Above the escalation threshold the plan always contains a
// require-all level at or above the routed role, appending one if needed.
func (u *Usecase) Expand(ctx context.Context, c *chain.ApprovalChain, rt *router.Router, in Input) (*Plan, error) {
	amount := in.Amount
	if in.BaseCurrency != "" && !in.BaseAmount.IsZero() {
		amount = in.BaseAmount
	}
	routed, err := rt.Route(amount)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Chain: c, RoutedRole: routed, NeedsEscalation: rt.NeedsEscalation(amount)}

	defs := c.LevelDefs()
	for _, l := range defs {
		pl := PlannedLevel{
			Number:       l.LevelNumber,
			Role:         l.RequiredRole,
			ApproverIDs:  append([]string(nil), l.SpecificApproverIDs...),
			AlternateIDs: append([]string(nil), l.AlternateApproverIDs...),
			RequireAll:   l.RequireAll || c.RequireAllApprovers,
		}
		if l.RouterDriven() {
			pl.Role = routed.Name
		}
		plan.Levels = append(plan.Levels, pl)
	}

	if plan.NeedsEscalation {
		senior := -1
		for i, pl := range plan.Levels {
			if pl.Role != "" && rt.Seniority(pl.Role) >= routed.Seniority {
				senior = i
				break
			}
		}
		if senior >= 0 {
			plan.Levels[senior].RequireAll = true
		} else {
			plan.Levels = append(plan.Levels, PlannedLevel{
				Number:     len(plan.Levels) + 1,
				Role:       routed.Name,
				RequireAll: true,
				Mandatory:  true,
			})
			u.log.Info().Str("chain_id", c.ChainID).Str("role", routed.Name).
				Str("amount", amount.String()).Msg("senior sign-off level appended")
		}
	}

	for i := range plan.Levels {
		pl := &plan.Levels[i]
		if len(pl.ApproverIDs) > 0 {
			continue
		}
		users, err := u.directory.UsersWithRole(ctx, in.OrganizationID, pl.Role)
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", pl.Role, err)
		}
		if len(users) == 0 {
			return nil, &NoEligibleApproverError{ChainID: c.ChainID, Level: pl.Number, Role: pl.Role}
		}
		pl.ApproverIDs = users
	}
	return plan, nil
}
