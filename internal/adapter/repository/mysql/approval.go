package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	approvalDomain "invoice-approval-engine/internal/domain/approval"
	invoiceDomain "invoice-approval-engine/internal/domain/invoice"
)

var _ approvalDomain.Repository = (*ApprovalRepository)(nil)

type ApprovalRepository struct{ db *gorm.DB }

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository { return &ApprovalRepository{db: db} }

var live = []approvalDomain.Status{approvalDomain.StatusPending, approvalDomain.StatusEscalated}

func (r *ApprovalRepository) CreateBatch(ctx context.Context, list []*approvalDomain.Approval) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *ApprovalRepository) GetByApprovalID(ctx context.Context, approvalID string) (*approvalDomain.Approval, error) {
	var out approvalDomain.Approval
	err := r.db.WithContext(ctx).Where("approval_id = ?", approvalID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, approvalDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ApprovalRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*approvalDomain.Approval, error) {
	var out []*approvalDomain.Approval
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("level ASC, sequence ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *ApprovalRepository) ListByLevel(ctx context.Context, invoiceID string, level int) ([]*approvalDomain.Approval, error) {
	var out []*approvalDomain.Approval
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND level = ?", invoiceID, level).
		Order("sequence ASC, id ASC").
		Find(&out).Error
	return out, err
}

// pendingInvoices selects invoices still awaiting approval.
func (r *ApprovalRepository) pendingInvoices() *gorm.DB {
	return r.db.Model(&invoiceDomain.Invoice{}).
		Select("invoice_id").
		Where("approval_status = ?", invoiceDomain.ApprovalPending)
}

// ListPendingForActor mirrors Approval.Eligible: the escalation target, the
// delegatee, the undelegated approver, or a candidate of a level that is
// neither escalated nor delegated away from that candidate.
func (r *ApprovalRepository) ListPendingForActor(ctx context.Context, actorID string) ([]*approvalDomain.Approval, error) {
	candidate := r.db.
		Where("is_escalated = ?", false).
		Where(datatypes.JSONArrayQuery("candidate_ids").Contains(actorID)).
		Where(r.db.Where("is_delegated = ?", false).Or("delegated_from_id <> ?", actorID))
	eligible := r.db.
		Where("is_escalated = ? AND escalated_to_id = ?", true, actorID).
		Or("is_escalated = ? AND is_delegated = ? AND delegated_to_id = ?", false, true, actorID).
		Or("is_escalated = ? AND is_delegated = ? AND approver_id = ?", false, false, actorID).
		Or(candidate)

	var out []*approvalDomain.Approval
	err := r.db.WithContext(ctx).
		Where("status IN ? AND assigned_at IS NOT NULL", live).
		Where(eligible).
		Where("invoice_id IN (?)", r.pendingInvoices()).
		Order("sla_due_date ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *ApprovalRepository) ListDueForEscalation(ctx context.Context, now time.Time, limit int) ([]*approvalDomain.Approval, error) {
	var out []*approvalDomain.Approval
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_escalated = ? AND assigned_at IS NOT NULL AND sla_due_date < ?",
			approvalDomain.StatusPending, false, now).
		Where("invoice_id IN (?)", r.pendingInvoices()).
		Order("sla_due_date ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *ApprovalRepository) ListDueForReminder(ctx context.Context, now, horizon time.Time, limit int) ([]*approvalDomain.Approval, error) {
	var out []*approvalDomain.Approval
	err := r.db.WithContext(ctx).
		Where("status = ? AND assigned_at IS NOT NULL AND reminder_sent_at IS NULL", approvalDomain.StatusPending).
		Where("sla_due_date > ? AND sla_due_date <= ?", now, horizon).
		Where("invoice_id IN (?)", r.pendingInvoices()).
		Order("sla_due_date ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// update applies values when the row still matches the guard.
func (r *ApprovalRepository) update(ctx context.Context, approvalID string, values map[string]any, guard string, args ...any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&approvalDomain.Approval{}).
		Where("approval_id = ?", approvalID).
		Where(guard, args...).
		Updates(values)
	return res.RowsAffected == 1, res.Error
}

func (r *ApprovalRepository) Activate(ctx context.Context, approvalID string, act approvalDomain.Activation) (bool, error) {
	return r.update(ctx, approvalID, map[string]any{
		"assigned_at":       act.AssignedAt,
		"sla_due_date":      act.SLADueDate,
		"is_delegated":      act.DelegatedToID != nil,
		"delegated_from_id": act.DelegatedFromID,
		"delegated_to_id":   act.DelegatedToID,
	}, "status = ? AND assigned_at IS NULL", approvalDomain.StatusPending)
}

func (r *ApprovalRepository) MarkViewed(ctx context.Context, approvalID string, at time.Time) (bool, error) {
	return r.update(ctx, approvalID, map[string]any{"viewed_at": at}, "viewed_at IS NULL")
}

func (r *ApprovalRepository) RecordDecision(ctx context.Context, approvalID string, d approvalDomain.Decision, actorID string, comments *string, at time.Time) (bool, error) {
	values := map[string]any{
		"status":        d.Status(),
		"decision":      d,
		"decided_by_id": actorID,
		"comments":      comments,
		"actioned_at":   at,
	}
	if d == approvalDomain.DecisionApprove {
		values["approved_at"] = at
	} else {
		values["rejected_at"] = at
	}
	return r.update(ctx, approvalID, values, "status IN ? AND assigned_at IS NOT NULL", live)
}

func (r *ApprovalRepository) MarkEscalated(ctx context.Context, approvalID string, esc approvalDomain.Escalation) (bool, error) {
	return r.update(ctx, approvalID, map[string]any{
		"status":           approvalDomain.StatusEscalated,
		"is_escalated":     true,
		"escalated_to_id":  esc.ToID,
		"escalated_reason": esc.Reason,
		"escalated_at":     esc.At,
		"sla_breach_date":  gorm.Expr("COALESCE(sla_breach_date, ?)", esc.At),
	}, "status = ? AND is_escalated = ? AND assigned_at IS NOT NULL AND sla_due_date < ?",
		approvalDomain.StatusPending, false, esc.At)
}

func (r *ApprovalRepository) MarkReminded(ctx context.Context, approvalID string, at time.Time) (bool, error) {
	return r.update(ctx, approvalID, map[string]any{"reminder_sent_at": at},
		"status = ? AND assigned_at IS NOT NULL AND reminder_sent_at IS NULL", approvalDomain.StatusPending)
}

// HandOff only succeeds while fromID is still the acting user.
func (r *ApprovalRepository) HandOff(ctx context.Context, approvalID, fromID, toID string, at time.Time) (bool, error) {
	return r.update(ctx, approvalID, map[string]any{
		"is_delegated":      true,
		"delegated_from_id": fromID,
		"delegated_to_id":   toID,
		"updated_at":        at,
	}, "status = ? AND is_escalated = ? AND assigned_at IS NOT NULL AND ((is_delegated = ? AND approver_id = ?) OR (is_delegated = ? AND delegated_to_id = ?))",
		approvalDomain.StatusPending, false, false, fromID, true, fromID)
}
