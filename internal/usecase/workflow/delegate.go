package workflow

import (
	"context"
	"fmt"
	"strings"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/domain/notify"
	"invoice-approval-engine/internal/domain/uow"
)

// Delegate hands a live approval to another user. Status is unchanged; only
// the delegation fields move. Escalated approvals cannot be handed off.
func (u *Usecase) Delegate(ctx context.Context, in DelegateInput) (*approval.Approval, error) {
	delegatee := strings.TrimSpace(in.DelegateeID)
	if delegatee == "" || delegatee == in.ActorID {
		return nil, ErrInvalidDelegatee
	}
	a, err := u.approvals.GetByApprovalID(ctx, in.ApprovalID)
	if err != nil {
		return nil, err
	}
	switch {
	case a.Status != approval.StatusPending || a.IsEscalated:
		return nil, invalid(a, "delegate", "")
	case !a.Active():
		return nil, invalid(a, "delegate", fmt.Sprintf("level %d is not active", a.Level))
	case in.ActorID != a.Actor():
		return nil, approval.ErrNotAssignedApprover
	}
	c, err := u.chains.GetByChainID(ctx, a.ApprovalChainID)
	if err != nil {
		return nil, err
	}
	if !c.AllowDelegation {
		return nil, ErrDelegationNotAllowed
	}

	now := u.clock.Now()
	err = u.uow.WithinInvoiceTx(ctx, a.InvoiceID, func(r uow.Repos, inv *invoice.Invoice) error {
		if inv.ApprovalStatus != invoice.ApprovalPending {
			return invalid(a, "delegate", fmt.Sprintf("invoice is %s", inv.ApprovalStatus))
		}
		ok, err := r.Approvals.HandOff(ctx, a.ApprovalID, in.ActorID, delegatee, now)
		if err != nil {
			return err
		}
		if !ok {
			return invalid(a, "delegate", "approval changed concurrently")
		}
		if a.Level == inv.CurrentStage {
			return r.Invoices.SetApprovers(ctx, inv.InvoiceID, &delegatee, inv.NextApproverID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := u.approvals.GetByApprovalID(ctx, a.ApprovalID)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("approval_id", a.ApprovalID).Str("from", in.ActorID).Str("to", delegatee).Msg("approval handed off")
	u.appendAudit(ctx, a.OrganizationID, audit.ActionApprovalDelegated, audit.EntityApproval, a.ApprovalID, in.ActorID,
		strPtr(in.ActorID), strPtr(delegatee))

	msg := fmt.Sprintf("%s handed you the approval for invoice %s.", in.ActorID, a.InvoiceID)
	if r := strings.TrimSpace(deref(in.Reason)); r != "" {
		msg += " Reason: " + r
	}
	u.send(ctx, notify.Notification{
		OrganizationID: a.OrganizationID,
		UserID:         delegatee,
		Type:           notify.TypeApprovalDelegated,
		Title:          "Approval delegated to you",
		Message:        msg,
		Priority:       notify.PriorityNormal,
		Entity:         notify.EntityRef{Type: audit.EntityApproval, ID: a.ApprovalID},
	})
	return fresh, nil
}
