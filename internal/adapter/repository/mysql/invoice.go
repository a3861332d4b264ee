package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	invoiceDomain "invoice-approval-engine/internal/domain/invoice"
)

var _ invoiceDomain.Repository = (*InvoiceRepository)(nil)

type InvoiceRepository struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository { return &InvoiceRepository{db: db} }

var startable = []invoiceDomain.ApprovalStatus{"", invoiceDomain.ApprovalNone, invoiceDomain.ApprovalBlocked}

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoiceDomain.Invoice) error {
	if inv.ApprovalStatus == "" {
		inv.ApprovalStatus = invoiceDomain.ApprovalNone
	}
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InvoiceRepository) get(q *gorm.DB, invoiceID string) (*invoiceDomain.Invoice, error) {
	var out invoiceDomain.Invoice
	err := q.Where("invoice_id = ?", invoiceID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invoiceDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *InvoiceRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*invoiceDomain.Invoice, error) {
	return r.get(r.db.WithContext(ctx), invoiceID)
}

func (r *InvoiceRepository) GetForUpdate(ctx context.Context, invoiceID string) (*invoiceDomain.Invoice, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), invoiceID)
}

func (r *InvoiceRepository) update(ctx context.Context, invoiceID string, values map[string]any, guard string, args ...any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&invoiceDomain.Invoice{}).
		Where("invoice_id = ?", invoiceID).
		Where(guard, args...).
		Updates(values)
	return res.RowsAffected == 1, res.Error
}

func (r *InvoiceRepository) BeginWorkflow(ctx context.Context, invoiceID string, ws invoiceDomain.WorkflowStart) (bool, error) {
	values := map[string]any{
		"approval_status":     invoiceDomain.ApprovalPending,
		"approval_chain_id":   ws.ChainID,
		"blocked_reason":      nil,
		"current_stage":       ws.CurrentStage,
		"total_stages":        ws.TotalStages,
		"current_approver_id": ws.CurrentApproverID,
		"next_approver_id":    ws.NextApproverID,
		"fully_approved":      false,
		"ready_for_payment":   false,
		"submitted_at":        ws.At,
	}
	if ws.SubmittedBy != nil {
		values["submitted_by"] = *ws.SubmittedBy
	}
	return r.update(ctx, invoiceID, values, "approval_status IN ?", startable)
}

func (r *InvoiceRepository) Block(ctx context.Context, invoiceID, reason string, at time.Time) (bool, error) {
	return r.update(ctx, invoiceID, map[string]any{
		"approval_status": invoiceDomain.ApprovalBlocked,
		"blocked_reason":  reason,
		"updated_at":      at,
	}, "approval_status IN ?", startable)
}

func (r *InvoiceRepository) AdvanceStage(ctx context.Context, invoiceID string, from int) (bool, error) {
	return r.update(ctx, invoiceID, map[string]any{
		"current_stage": gorm.Expr("current_stage + 1"),
	}, "approval_status = ? AND current_stage = ?", invoiceDomain.ApprovalPending, from)
}

func (r *InvoiceRepository) Complete(ctx context.Context, invoiceID string, stage int, at time.Time) (bool, error) {
	return r.update(ctx, invoiceID, map[string]any{
		"approval_status":     invoiceDomain.ApprovalApproved,
		"fully_approved":      true,
		"ready_for_payment":   true,
		"approved_at":         at,
		"current_approver_id": nil,
		"next_approver_id":    nil,
	}, "approval_status = ? AND current_stage = ?", invoiceDomain.ApprovalPending, stage)
}

func (r *InvoiceRepository) Reject(ctx context.Context, invoiceID string, at time.Time) (bool, error) {
	return r.update(ctx, invoiceID, map[string]any{
		"approval_status":     invoiceDomain.ApprovalRejected,
		"ready_for_payment":   false,
		"rejected_at":         at,
		"current_approver_id": nil,
		"next_approver_id":    nil,
	}, "approval_status = ?", invoiceDomain.ApprovalPending)
}

func (r *InvoiceRepository) SetApprovers(ctx context.Context, invoiceID string, current, next *string) error {
	return r.db.WithContext(ctx).
		Model(&invoiceDomain.Invoice{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]any{"current_approver_id": current, "next_approver_id": next}).Error
}
