package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/directory"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/domain/notify"
	"invoice-approval-engine/internal/domain/uow"
	"invoice-approval-engine/internal/usecase/chainresolver"
)

// Escalate reassigns an overdue PENDING approval. It is a no-op when the
// approval is not yet due, already escalated, or was decided concurrently.
// Calling it on an approval that is already terminal returns an
// InvalidTransitionError alongside the approval.
func (u *Usecase) Escalate(ctx context.Context, approvalID string) (*approval.Approval, bool, error) {
	a, err := u.approvals.GetByApprovalID(ctx, approvalID)
	if err != nil {
		return nil, false, err
	}
	if a.Status.Terminal() {
		return a, false, invalid(a, "escalate", "")
	}
	now := u.clock.Now()
	if a.Status != approval.StatusPending || a.IsEscalated || !a.Active() || a.SLADueDate == nil || !now.After(*a.SLADueDate) {
		return a, false, nil
	}

	target, err := u.escalationTarget(ctx, a)
	if err != nil {
		u.log.Error().Err(err).Str("approval_id", a.ApprovalID).Str("actor_id", a.Actor()).Msg("cannot escalate overdue approval")
		return a, false, err
	}
	reason := fmt.Sprintf("SLA breached: due %s", a.SLADueDate.UTC().Format(time.RFC3339))
	previous := a.Actor()

	changed := false
	err = u.uow.WithinInvoiceTx(ctx, a.InvoiceID, func(r uow.Repos, inv *invoice.Invoice) error {
		if inv.ApprovalStatus != invoice.ApprovalPending {
			return nil
		}
		ok, err := r.Approvals.MarkEscalated(ctx, a.ApprovalID, approval.Escalation{At: now, ToID: target, Reason: reason})
		if err != nil || !ok {
			return err
		}
		changed = true
		if a.Level == inv.CurrentStage {
			return r.Invoices.SetApprovers(ctx, inv.InvoiceID, &target, inv.NextApproverID)
		}
		return nil
	})
	if err != nil {
		return a, false, err
	}

	fresh, err := u.approvals.GetByApprovalID(ctx, approvalID)
	if err != nil {
		return a, changed, err
	}
	if !changed {
		return fresh, false, nil
	}

	u.log.Warn().Str("approval_id", a.ApprovalID).Str("invoice_id", a.InvoiceID).
		Str("from", previous).Str("to", target).Msg("approval escalated")
	u.appendAudit(ctx, a.OrganizationID, audit.ActionApprovalEscalated, audit.EntityApproval, a.ApprovalID, "",
		strPtr(previous), strPtr(target))

	n := notify.Notification{
		OrganizationID: a.OrganizationID,
		UserID:         target,
		Type:           notify.TypeApprovalEscalated,
		Title:          "Overdue approval escalated to you",
		Message:        fmt.Sprintf("Approval for invoice %s was escalated from %s: %s.", a.InvoiceID, previous, reason),
		Priority:       notify.PriorityHigh,
		Entity:         notify.EntityRef{Type: audit.EntityApproval, ID: a.ApprovalID},
	}
	u.send(ctx, n)
	n.Title = "Approval escalated"
	u.sendRole(ctx, a.OrganizationID, u.cfg.FinanceManagerRole, n, target)
	return fresh, true, nil
}

// escalationTarget picks, in order: the actor's manager, the first alternate
// approver of the level, the first holder of the next role up.
func (u *Usecase) escalationTarget(ctx context.Context, a *approval.Approval) (string, error) {
	actor := a.Actor()
	usable := func(id string) bool { return id != "" && id != actor && id != a.ApproverID }

	if u.directory != nil {
		m, err := u.directory.ManagerOf(ctx, a.OrganizationID, actor)
		switch {
		case err == nil && usable(m):
			return m, nil
		case err != nil && !errors.Is(err, directory.ErrNoManager):
			return "", fmt.Errorf("manager lookup: %w", err)
		}
	}

	c, err := u.chains.GetByChainID(ctx, a.ApprovalChainID)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return "", err
	}
	if c != nil {
		if l, ok := c.Level(a.Level); ok {
			for _, alt := range l.AlternateApproverIDs {
				if usable(alt) {
					return alt, nil
				}
			}
		}
	}

	if a.RequiredRole != "" && u.routers != nil && u.directory != nil {
		rt, err := u.routers.For(ctx, a.OrganizationID)
		if err != nil {
			return "", err
		}
		if next, err := rt.Next(a.RequiredRole); err == nil {
			users, err := u.directory.UsersWithRole(ctx, a.OrganizationID, next.Name)
			if err != nil {
				return "", err
			}
			for _, user := range users {
				if usable(user) {
					return user, nil
				}
			}
		}
	}
	return "", ErrNoEscalationTarget
}

// Remind sends one reminder when the approval enters its reminder window
// before the SLA. It reports whether a reminder went out.
func (u *Usecase) Remind(ctx context.Context, approvalID string) (bool, error) {
	a, err := u.approvals.GetByApprovalID(ctx, approvalID)
	if err != nil {
		return false, err
	}
	if a.Status != approval.StatusPending || !a.Active() || a.ReminderSentAt != nil || a.SLADueDate == nil {
		return false, nil
	}
	now := u.clock.Now()
	if !now.Before(*a.SLADueDate) {
		return false, nil
	}

	c, err := u.chains.GetByChainID(ctx, a.ApprovalChainID)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		return false, err
	}
	if now.Before(a.SLADueDate.Add(-chainresolver.ReminderWindow(c, u.cfg.DefaultReminder))) {
		return false, nil
	}

	inv, err := u.invoices.GetByInvoiceID(ctx, a.InvoiceID)
	if err != nil {
		return false, err
	}
	if inv.ApprovalStatus != invoice.ApprovalPending {
		return false, nil
	}

	ok, err := u.approvals.MarkReminded(ctx, a.ApprovalID, now)
	if err != nil || !ok {
		return false, err
	}
	u.log.Info().Str("approval_id", a.ApprovalID).Str("actor_id", a.Actor()).Msg("approval reminder sent")
	for _, user := range a.Eligible() {
		u.send(ctx, notify.Notification{
			OrganizationID: a.OrganizationID,
			UserID:         user,
			Type:           notify.TypeApprovalReminder,
			Title:          "Approval due soon",
			Message:        fmt.Sprintf("Invoice %s (%s %s) needs your approval by %s.", invoiceLabel(inv), inv.TotalAmount.StringFixed(2), inv.Currency, formatDue(a.SLADueDate)),
			Priority:       notify.PriorityNormal,
			Entity:         notify.EntityRef{Type: audit.EntityApproval, ID: a.ApprovalID},
		})
	}
	return true, nil
}
