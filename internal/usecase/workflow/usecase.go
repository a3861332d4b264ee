package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/directory"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/domain/notify"
	"invoice-approval-engine/internal/domain/uow"
	"invoice-approval-engine/internal/usecase/chainresolver"
	"invoice-approval-engine/internal/usecase/delegation"
	"invoice-approval-engine/internal/usecase/router"
	"invoice-approval-engine/pkg/clock"
	"invoice-approval-engine/pkg/id"
)

// Deps are the collaborators of the engine. Notifier and Audit may be nil.
type Deps struct {
	UoW         uow.UnitOfWork
	Approvals   approval.Repository
	Invoices    invoice.Repository
	Chains      chain.Repository
	Resolver    *chainresolver.Usecase
	Delegations *delegation.Usecase
	Routers     *router.Usecase
	Directory   directory.Directory
	Notifier    notify.Dispatcher
	Audit       audit.Recorder
	Clock       clock.Clock
	Log         zerolog.Logger
}

// Usecase is the approval state machine. Every transition runs inside a
// transaction holding the invoice row, and every mutation is a conditional
// update, so a lost race turns into a no-op or an InvalidTransitionError.
// Notifications and audit entries are emitted after commit and never fail
// the transition.
type Usecase struct {
	uow         uow.UnitOfWork
	approvals   approval.Repository
	invoices    invoice.Repository
	chains      chain.Repository
	resolver    *chainresolver.Usecase
	delegations *delegation.Usecase
	routers     *router.Usecase
	directory   directory.Directory
	notifier    notify.Dispatcher
	audit       audit.Recorder
	clock       clock.Clock
	cfg         Config
	log         zerolog.Logger
}

func NewUsecase(d Deps, cfg Config) *Usecase {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if cfg.DefaultSLA <= 0 {
		cfg.DefaultSLA = 48 * time.Hour
	}
	if cfg.DefaultReminder <= 0 {
		cfg.DefaultReminder = 12 * time.Hour
	}
	return &Usecase{
		uow:         d.UoW,
		approvals:   d.Approvals,
		invoices:    d.Invoices,
		chains:      d.Chains,
		resolver:    d.Resolver,
		delegations: d.Delegations,
		routers:     d.Routers,
		directory:   d.Directory,
		notifier:    d.Notifier,
		audit:       d.Audit,
		clock:       d.Clock,
		cfg:         cfg,
		log:         d.Log.With().Str("component", "workflow").Logger(),
	}
}

// ── Queries ─────────────────────────────────────────────────────────────────

func (u *Usecase) Get(ctx context.Context, approvalID string) (*approval.Approval, error) {
	return u.approvals.GetByApprovalID(ctx, approvalID)
}

// ListForInvoice returns every approval of the invoice ordered by level and
// sequence. It is the invoice's approval audit trail.
func (u *Usecase) ListForInvoice(ctx context.Context, invoiceID string) ([]*approval.Approval, error) {
	if _, err := u.invoices.GetByInvoiceID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return u.approvals.ListByInvoice(ctx, invoiceID)
}

// PendingFor lists live approvals the user is expected to act on.
func (u *Usecase) PendingFor(ctx context.Context, actorID string) ([]*approval.Approval, error) {
	return u.approvals.ListPendingForActor(ctx, actorID)
}

// View returns the approval and stamps viewedAt the first time an eligible
// approver opens it.
func (u *Usecase) View(ctx context.Context, approvalID, actorID string) (*approval.Approval, error) {
	a, err := u.approvals.GetByApprovalID(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if a.ViewedAt != nil || !a.Active() || a.Status.Terminal() || !a.CanAct(actorID) {
		return a, nil
	}
	now := u.clock.Now()
	ok, err := u.approvals.MarkViewed(ctx, approvalID, now)
	if err != nil {
		u.log.Warn().Err(err).Str("approval_id", approvalID).Msg("mark viewed failed")
		return a, nil
	}
	if ok {
		a.ViewedAt = &now
	}
	return a, nil
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// activation computes what an approval gets when its level goes live: the
// assignment time, its SLA and, if the chain allows it, a delegation resolved
// at this instant.
func (u *Usecase) activation(ctx context.Context, deleg *delegation.Usecase, c *chain.ApprovalChain, inv *invoice.Invoice, a *approval.Approval, now time.Time) (approval.Activation, error) {
	act := approval.Activation{
		AssignedAt: now,
		SLADueDate: now.Add(chainresolver.SLA(c, u.cfg.DefaultSLA)),
	}
	if c == nil || !c.AllowDelegation || deleg == nil {
		return act, nil
	}
	res, err := deleg.Resolve(ctx, delegation.Query{
		NominalApproverID: a.ApproverID,
		At:                now,
		Amount:            inv.RoutingAmount(),
		Category:          inv.CategoryValue(),
	})
	if err != nil {
		return act, err
	}
	if res.WasDelegated {
		from, to := a.ApproverID, res.ApproverID
		act.DelegatedFromID = &from
		act.DelegatedToID = &to
	}
	return act, nil
}

func applyActivation(a *approval.Approval, act approval.Activation) {
	assigned, due := act.AssignedAt, act.SLADueDate
	a.AssignedAt = &assigned
	a.SLADueDate = &due
	if act.DelegatedToID != nil {
		a.IsDelegated = true
		a.DelegatedFromID = act.DelegatedFromID
		a.DelegatedToID = act.DelegatedToID
	}
}

func levelSatisfied(list []*approval.Approval) bool {
	if len(list) == 0 {
		return false
	}
	for _, a := range list {
		if !a.Status.Satisfied() {
			return false
		}
	}
	return true
}

func firstActor(list []*approval.Approval) *string {
	for _, a := range list {
		if a.Active() && !a.Status.Terminal() {
			s := a.Actor()
			return &s
		}
	}
	return nil
}

func firstApprover(list []*approval.Approval) *string {
	if len(list) == 0 {
		return nil
	}
	s := list[0].ApproverID
	return &s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func invalid(a *approval.Approval, op, reason string) error {
	return &approval.InvalidTransitionError{ApprovalID: a.ApprovalID, From: a.Status, Op: op, Reason: reason}
}

// ── Side effects (after commit, never fatal) ────────────────────────────────

func (u *Usecase) send(ctx context.Context, n notify.Notification) {
	if u.notifier == nil || n.UserID == "" {
		return
	}
	if err := u.notifier.Notify(ctx, n); err != nil {
		u.log.Warn().Err(err).Str("user_id", n.UserID).Str("type", string(n.Type)).Msg("notification failed")
	}
}

// sendRole notifies every holder of role except the users in skip.
func (u *Usecase) sendRole(ctx context.Context, organizationID, role string, n notify.Notification, skip ...string) {
	if u.directory == nil || role == "" {
		return
	}
	users, err := u.directory.UsersWithRole(ctx, organizationID, role)
	if err != nil {
		u.log.Warn().Err(err).Str("role", role).Msg("role lookup for notification failed")
		return
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[s] = struct{}{}
	}
	for _, user := range users {
		if _, ok := skipped[user]; ok {
			continue
		}
		n.UserID = user
		u.send(ctx, n)
	}
}

func (u *Usecase) appendAudit(ctx context.Context, orgID, action, entityType, entityID, actorID string, oldValue, newValue *string) {
	if u.audit == nil {
		return
	}
	e := &audit.Entry{
		EntryID:        id.NewID32(),
		OrganizationID: orgID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		ActorID:        actorID,
		OldValue:       oldValue,
		NewValue:       newValue,
		CreatedAt:      u.clock.Now(),
	}
	if err := u.audit.Record(ctx, e); err != nil {
		u.log.Warn().Err(err).Str("action", action).Str("entity_id", entityID).Msg("audit write failed")
	}
}

func (u *Usecase) announceAssigned(ctx context.Context, inv *invoice.Invoice, list []*approval.Approval, actorID string) {
	for _, a := range list {
		u.appendAudit(ctx, a.OrganizationID, audit.ActionApprovalAssigned, audit.EntityApproval, a.ApprovalID, actorID,
			nil, strPtr(a.Actor()))
		for _, user := range a.Eligible() {
			u.send(ctx, notify.Notification{
				OrganizationID: a.OrganizationID,
				UserID:         user,
				Type:           notify.TypeApprovalAssigned,
				Title:          "Invoice awaiting your approval",
				Message:        fmt.Sprintf("Invoice %s (%s %s) needs your level %d approval by %s.", invoiceLabel(inv), inv.TotalAmount.StringFixed(2), inv.Currency, a.Level, formatDue(a.SLADueDate)),
				Priority:       notify.PriorityNormal,
				Entity:         notify.EntityRef{Type: audit.EntityApproval, ID: a.ApprovalID},
			})
		}
	}
}

func invoiceLabel(inv *invoice.Invoice) string {
	if inv.InvoiceNumber != "" {
		return inv.InvoiceNumber
	}
	return inv.InvoiceID
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
