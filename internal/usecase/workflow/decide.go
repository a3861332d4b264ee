package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/domain/notify"
	"invoice-approval-engine/internal/domain/uow"
)

var errReplay = errors.New("decision already recorded")

// Decide records APPROVE or REJECT by one of the approval's eligible users.
//
// Repeating the decision already recorded returns the current state without
// touching it. A different decision on a decided approval is an
// InvalidTransitionError. Completing the last approval of a level activates
// the next level exactly once; completing the last level approves the invoice.
// A rejection rejects the invoice and no later level is ever activated.
func (u *Usecase) Decide(ctx context.Context, in DecideInput) (*DecideResult, error) {
	if !in.Decision.Valid() {
		return nil, approval.ErrInvalidDecision
	}
	a, err := u.approvals.GetByApprovalID(ctx, in.ApprovalID)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return replay(a, in)
	}
	if in.Decision == approval.DecisionReject && strings.TrimSpace(deref(in.Comments)) == "" {
		return nil, approval.ErrCommentsRequired
	}

	now := u.clock.Now()
	var (
		decided   *approval.Approval
		activated []*approval.Approval
		completed bool
		rejected  bool
	)

	err = u.uow.WithinInvoiceTx(ctx, a.InvoiceID, func(r uow.Repos, inv *invoice.Invoice) error {
		cur, err := r.Approvals.GetByApprovalID(ctx, in.ApprovalID)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			decided = cur
			return errReplay
		}
		if err := checkDecidable(cur, inv, in.ActorID); err != nil {
			return err
		}

		ok, err := r.Approvals.RecordDecision(ctx, cur.ApprovalID, in.Decision, in.ActorID, in.Comments, now)
		if err != nil {
			return err
		}
		if !ok {
			return invalid(cur, "decide", "approval changed concurrently")
		}
		prev := cur.Status
		cur.Status = in.Decision.Status()
		d := in.Decision
		cur.Decision = &d
		cur.Comments = in.Comments
		actor := in.ActorID
		cur.DecidedByID = &actor
		cur.ActionedAt = &now
		if cur.Status == approval.StatusApproved {
			cur.ApprovedAt = &now
		} else {
			cur.RejectedAt = &now
		}
		decided = cur
		u.log.Info().Str("approval_id", cur.ApprovalID).Str("invoice_id", inv.InvoiceID).
			Str("from", string(prev)).Str("to", string(cur.Status)).Str("actor_id", in.ActorID).Msg("approval decided")

		if in.Decision == approval.DecisionReject {
			rejected, err = r.Invoices.Reject(ctx, inv.InvoiceID, now)
			return err
		}

		level, err := r.Approvals.ListByLevel(ctx, inv.InvoiceID, cur.Level)
		if err != nil {
			return err
		}
		if !levelSatisfied(level) {
			return nil
		}
		if cur.Level >= inv.TotalStages {
			completed, err = r.Invoices.Complete(ctx, inv.InvoiceID, cur.Level, now)
			return err
		}

		// the stage guard makes activation happen once per level
		advanced, err := r.Invoices.AdvanceStage(ctx, inv.InvoiceID, cur.Level)
		if err != nil || !advanced {
			return err
		}
		activated, err = u.activateLevel(ctx, r, inv, cur.ApprovalChainID, cur.Level+1, now)
		return err
	})

	switch {
	case errors.Is(err, errReplay):
		return replay(decided, in)
	case err != nil:
		var ite *approval.InvalidTransitionError
		if errors.As(err, &ite) && decided == nil {
			if cur, gerr := u.approvals.GetByApprovalID(ctx, in.ApprovalID); gerr == nil {
				return &DecideResult{Approval: cur}, err
			}
		}
		return nil, err
	}

	fresh, err := u.invoices.GetByInvoiceID(ctx, decided.InvoiceID)
	if err != nil {
		return nil, err
	}

	action := audit.ActionApprovalApproved
	if decided.Status == approval.StatusRejected {
		action = audit.ActionApprovalRejected
	}
	u.appendAudit(ctx, decided.OrganizationID, action, audit.EntityApproval, decided.ApprovalID, in.ActorID,
		strPtr(string(a.Status)), strPtr(string(decided.Status)))
	u.announceAssigned(ctx, fresh, activated, in.ActorID)
	switch {
	case completed:
		u.log.Info().Str("invoice_id", fresh.InvoiceID).Msg("invoice fully approved")
		u.finished(ctx, fresh, notify.TypeInvoiceApproved, audit.ActionInvoiceApproved, in.ActorID)
	case rejected:
		u.log.Info().Str("invoice_id", fresh.InvoiceID).Msg("invoice rejected")
		u.finished(ctx, fresh, notify.TypeInvoiceRejected, audit.ActionInvoiceRejected, in.ActorID)
	}

	return &DecideResult{Approval: decided, Invoice: fresh, Activated: activated}, nil
}

// activateLevel assigns every approval of level and points the invoice at the
// new actors. Runs inside the caller's transaction.
func (u *Usecase) activateLevel(ctx context.Context, r uow.Repos, inv *invoice.Invoice, chainID string, level int, now time.Time) ([]*approval.Approval, error) {
	c, err := r.Chains.GetByChainID(ctx, chainID)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return nil, err
	}
	if c == nil {
		// chain deleted after start; defaults still apply
		u.log.Warn().Str("chain_id", chainID).Msg("approval chain missing at activation")
	}

	next, err := r.Approvals.ListByLevel(ctx, inv.InvoiceID, level)
	if err != nil {
		return nil, err
	}
	deleg := u.delegations
	if deleg != nil {
		deleg = deleg.WithRepository(r.Delegations)
	}

	var activated []*approval.Approval
	for _, n := range next {
		act, err := u.activation(ctx, deleg, c, inv, n, now)
		if err != nil {
			return nil, err
		}
		ok, err := r.Approvals.Activate(ctx, n.ApprovalID, act)
		if err != nil {
			return nil, err
		}
		if ok {
			applyActivation(n, act)
			activated = append(activated, n)
		}
	}

	following, err := r.Approvals.ListByLevel(ctx, inv.InvoiceID, level+1)
	if err != nil {
		return nil, err
	}
	if err := r.Invoices.SetApprovers(ctx, inv.InvoiceID, firstActor(next), firstApprover(following)); err != nil {
		return nil, err
	}
	return activated, nil
}

func checkDecidable(a *approval.Approval, inv *invoice.Invoice, actorID string) error {
	switch {
	case !a.Status.Decidable():
		return invalid(a, "decide", "")
	case !a.Active():
		return invalid(a, "decide", fmt.Sprintf("level %d is not active", a.Level))
	case inv.ApprovalStatus != invoice.ApprovalPending:
		return invalid(a, "decide", fmt.Sprintf("invoice is %s", inv.ApprovalStatus))
	case a.Level != inv.CurrentStage:
		return invalid(a, "decide", fmt.Sprintf("invoice is at stage %d", inv.CurrentStage))
	case !a.CanAct(actorID):
		return approval.ErrNotAssignedApprover
	}
	return nil
}

func replay(a *approval.Approval, in DecideInput) (*DecideResult, error) {
	if a.Decision != nil && *a.Decision == in.Decision {
		return &DecideResult{Approval: a, Replayed: true}, nil
	}
	return &DecideResult{Approval: a}, invalid(a, "decide", "already decided")
}
