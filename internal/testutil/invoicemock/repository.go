package invoicemock

import (
	"context"
	"time"

	domain "invoice-approval-engine/internal/domain/invoice"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn         func(ctx context.Context, inv *domain.Invoice) error
	GetByInvoiceIDFn func(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	GetForUpdateFn   func(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	BeginWorkflowFn  func(ctx context.Context, invoiceID string, ws domain.WorkflowStart) (bool, error)
	BlockFn          func(ctx context.Context, invoiceID, reason string, at time.Time) (bool, error)
	AdvanceStageFn   func(ctx context.Context, invoiceID string, from int) (bool, error)
	CompleteFn       func(ctx context.Context, invoiceID string, stage int, at time.Time) (bool, error)
	RejectFn         func(ctx context.Context, invoiceID string, at time.Time) (bool, error)
	SetApproversFn   func(ctx context.Context, invoiceID string, current, next *string) error
}

func (m *Repo) Create(ctx context.Context, inv *domain.Invoice) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, inv)
	}
	return nil
}

func (m *Repo) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	if m.GetByInvoiceIDFn != nil {
		return m.GetByInvoiceIDFn(ctx, invoiceID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetForUpdate(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, invoiceID)
	}
	return nil, context.Canceled
}

func (m *Repo) BeginWorkflow(ctx context.Context, invoiceID string, ws domain.WorkflowStart) (bool, error) {
	if m.BeginWorkflowFn != nil {
		return m.BeginWorkflowFn(ctx, invoiceID, ws)
	}
	return false, nil
}

func (m *Repo) Block(ctx context.Context, invoiceID, reason string, at time.Time) (bool, error) {
	if m.BlockFn != nil {
		return m.BlockFn(ctx, invoiceID, reason, at)
	}
	return false, nil
}

func (m *Repo) AdvanceStage(ctx context.Context, invoiceID string, from int) (bool, error) {
	if m.AdvanceStageFn != nil {
		return m.AdvanceStageFn(ctx, invoiceID, from)
	}
	return false, nil
}

func (m *Repo) Complete(ctx context.Context, invoiceID string, stage int, at time.Time) (bool, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, invoiceID, stage, at)
	}
	return false, nil
}

func (m *Repo) Reject(ctx context.Context, invoiceID string, at time.Time) (bool, error) {
	if m.RejectFn != nil {
		return m.RejectFn(ctx, invoiceID, at)
	}
	return false, nil
}

func (m *Repo) SetApprovers(ctx context.Context, invoiceID string, current, next *string) error {
	if m.SetApproversFn != nil {
		return m.SetApproversFn(ctx, invoiceID, current, next)
	}
	return nil
}
