package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/domain/notify"
	"invoice-approval-engine/internal/domain/uow"
	"invoice-approval-engine/internal/usecase/chainresolver"
	"invoice-approval-engine/pkg/id"
)

// Start resolves the chain for the invoice and creates the approvals of every
// level: one per approver on a require-all level, otherwise a single approval
// any eligible approver may decide. Only level 1 is assigned; later levels stay inert until
// the level before them completes.
func (u *Usecase) Start(ctx context.Context, invoiceID, submittedBy string) (*StartResult, error) {
	inv, err := u.invoices.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	switch {
	case inv.ApprovalStatus == invoice.ApprovalRejected:
		return nil, invoice.ErrWorkflowClosed
	case !inv.ApprovalStatus.Startable():
		return nil, invoice.ErrWorkflowStarted
	case inv.TotalAmount.IsNegative():
		return nil, invoice.ErrNegativeAmount
	}

	now := u.clock.Now()
	in := chainresolver.Input{
		OrganizationID: inv.OrganizationID,
		Amount:         inv.TotalAmount,
		Currency:       inv.Currency,
		BaseAmount:     inv.BaseCurrencyAmount,
		BaseCurrency:   inv.BaseCurrency,
		Category:       inv.CategoryValue(),
		Department:     inv.DepartmentValue(),
	}

	c, err := u.resolver.Resolve(ctx, in)
	if err != nil {
		if errors.Is(err, chain.ErrNoApplicableChain) {
			u.block(ctx, inv, err, submittedBy, now)
		}
		return nil, err
	}
	rt, err := u.routers.For(ctx, inv.OrganizationID)
	if err != nil {
		return nil, err
	}
	plan, err := u.resolver.Expand(ctx, c, rt, in)
	if err != nil {
		if errors.Is(err, chainresolver.ErrNoEligibleApprover) {
			u.block(ctx, inv, err, submittedBy, now)
		}
		return nil, err
	}

	auto := u.cfg.AutoApproveBelow.IsPositive() && inv.RoutingAmount().LessThanOrEqual(u.cfg.AutoApproveBelow)
	list := buildApprovals(inv, plan, auto, now)

	ws := invoice.WorkflowStart{
		ChainID:      c.ChainID,
		TotalStages:  len(plan.Levels),
		CurrentStage: 1,
		SubmittedBy:  strPtr(submittedBy),
		At:           now,
	}
	var first, second []*approval.Approval
	for _, a := range list {
		switch a.Level {
		case 1:
			first = append(first, a)
		case 2:
			second = append(second, a)
		}
	}
	if auto {
		ws.CurrentStage = len(plan.Levels)
	} else {
		for _, a := range first {
			act, err := u.activation(ctx, u.delegations, c, inv, a, now)
			if err != nil {
				return nil, err
			}
			applyActivation(a, act)
		}
		ws.CurrentApproverID = firstActor(first)
		ws.NextApproverID = firstApprover(second)
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		ok, err := r.Invoices.BeginWorkflow(ctx, inv.InvoiceID, ws)
		if err != nil {
			return err
		}
		if !ok {
			return invoice.ErrWorkflowStarted
		}
		if err := r.Approvals.CreateBatch(ctx, list); err != nil {
			return err
		}
		if auto {
			if _, err := r.Invoices.Complete(ctx, inv.InvoiceID, ws.CurrentStage, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := u.invoices.GetByInvoiceID(ctx, inv.InvoiceID)
	if err != nil {
		return nil, err
	}
	u.log.Info().
		Str("invoice_id", inv.InvoiceID).
		Str("chain_id", c.ChainID).
		Int("levels", len(plan.Levels)).
		Int("approvals", len(list)).
		Bool("auto_approved", auto).
		Msg("approval workflow started")

	u.appendAudit(ctx, inv.OrganizationID, audit.ActionWorkflowStarted, audit.EntityInvoice, inv.InvoiceID, submittedBy,
		strPtr(string(inv.ApprovalStatus)), strPtr(string(fresh.ApprovalStatus)))
	if auto {
		for _, a := range list {
			u.appendAudit(ctx, a.OrganizationID, audit.ActionApprovalAutoApproved, audit.EntityApproval, a.ApprovalID, submittedBy,
				nil, strPtr(string(a.Status)))
		}
		u.finished(ctx, fresh, notify.TypeInvoiceApproved, audit.ActionInvoiceApproved, submittedBy)
	} else {
		u.announceAssigned(ctx, fresh, first, submittedBy)
	}

	return &StartResult{Invoice: fresh, Chain: c, Approvals: list, AutoApproved: auto}, nil
}

func buildApprovals(inv *invoice.Invoice, plan *chainresolver.Plan, auto bool, now time.Time) []*approval.Approval {
	var out []*approval.Approval
	for _, pl := range plan.Levels {
		approvers := []string{pl.Primary()}
		var candidates []string
		switch {
		case pl.RequireAll:
			approvers = pl.ApproverIDs
		case len(pl.ApproverIDs) > 1:
			candidates = pl.ApproverIDs
		}
		for i, approverID := range approvers {
			a := &approval.Approval{
				ApprovalID:      id.NewID32(),
				OrganizationID:  inv.OrganizationID,
				InvoiceID:       inv.InvoiceID,
				ApprovalChainID: plan.Chain.ChainID,
				ApproverID:      approverID,
				CandidateIDs:    datatypes.NewJSONType(candidates),
				RequiredRole:    pl.Role,
				Level:           pl.Number,
				Sequence:        i + 1,
				RequireAll:      pl.RequireAll,
				Status:          approval.StatusPending,
			}
			if auto {
				d := approval.DecisionApprove
				at := now
				a.Status = approval.StatusAutoApproved
				a.Decision = &d
				a.AssignedAt = &at
				a.ActionedAt = &at
				a.ApprovedAt = &at
			}
			out = append(out, a)
		}
	}
	return out
}

// block parks the invoice when no chain or approver can be resolved and
// tells the administrators. The caller still receives the original error.
func (u *Usecase) block(ctx context.Context, inv *invoice.Invoice, cause error, actorID string, now time.Time) {
	reason := cause.Error()
	ok, err := u.invoices.Block(ctx, inv.InvoiceID, reason, now)
	if err != nil {
		u.log.Error().Err(err).Str("invoice_id", inv.InvoiceID).Msg("failed to block invoice")
		return
	}
	if !ok {
		return
	}
	u.log.Error().Str("invoice_id", inv.InvoiceID).Str("organization_id", inv.OrganizationID).Str("reason", reason).Msg("approval workflow blocked")
	u.appendAudit(ctx, inv.OrganizationID, audit.ActionWorkflowBlocked, audit.EntityInvoice, inv.InvoiceID, actorID,
		strPtr(string(inv.ApprovalStatus)), strPtr(string(invoice.ApprovalBlocked)))
	u.sendRole(ctx, inv.OrganizationID, u.cfg.AdminRole, notify.Notification{
		OrganizationID: inv.OrganizationID,
		Type:           notify.TypeWorkflowBlocked,
		Title:          "Invoice approval blocked",
		Message:        fmt.Sprintf("Invoice %s cannot enter approval: %s", invoiceLabel(inv), reason),
		Priority:       notify.PriorityUrgent,
		Entity:         notify.EntityRef{Type: audit.EntityInvoice, ID: inv.InvoiceID},
	})
}

// finished announces a terminal invoice outcome to the submitter.
func (u *Usecase) finished(ctx context.Context, inv *invoice.Invoice, t notify.Type, action, actorID string) {
	u.appendAudit(ctx, inv.OrganizationID, action, audit.EntityInvoice, inv.InvoiceID, actorID,
		strPtr(string(invoice.ApprovalPending)), strPtr(string(inv.ApprovalStatus)))

	title, priority := "Invoice approved", notify.PriorityNormal
	if t == notify.TypeInvoiceRejected {
		title, priority = "Invoice rejected", notify.PriorityHigh
	}
	u.send(ctx, notify.Notification{
		OrganizationID: inv.OrganizationID,
		UserID:         deref(inv.SubmittedBy),
		Type:           t,
		Title:          title,
		Message:        fmt.Sprintf("Invoice %s (%s %s) is %s.", invoiceLabel(inv), inv.TotalAmount.StringFixed(2), inv.Currency, inv.ApprovalStatus),
		Priority:       priority,
		Entity:         notify.EntityRef{Type: audit.EntityInvoice, ID: inv.InvoiceID},
	})
}
