package approvalmock

import (
	"context"
	"time"

	domain "invoice-approval-engine/internal/domain/approval"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset getters return context.Canceled; unset mutators report no change.
type Repo struct {
	CreateBatchFn          func(ctx context.Context, list []*domain.Approval) error
	GetByApprovalIDFn      func(ctx context.Context, approvalID string) (*domain.Approval, error)
	ListByInvoiceFn        func(ctx context.Context, invoiceID string) ([]*domain.Approval, error)
	ListByLevelFn          func(ctx context.Context, invoiceID string, level int) ([]*domain.Approval, error)
	ListPendingForActorFn  func(ctx context.Context, actorID string) ([]*domain.Approval, error)
	ListDueForEscalationFn func(ctx context.Context, now time.Time, limit int) ([]*domain.Approval, error)
	ListDueForReminderFn   func(ctx context.Context, now, horizon time.Time, limit int) ([]*domain.Approval, error)
	ActivateFn             func(ctx context.Context, approvalID string, act domain.Activation) (bool, error)
	MarkViewedFn           func(ctx context.Context, approvalID string, at time.Time) (bool, error)
	RecordDecisionFn       func(ctx context.Context, approvalID string, d domain.Decision, actorID string, comments *string, at time.Time) (bool, error)
	MarkEscalatedFn        func(ctx context.Context, approvalID string, esc domain.Escalation) (bool, error)
	MarkRemindedFn         func(ctx context.Context, approvalID string, at time.Time) (bool, error)
	HandOffFn              func(ctx context.Context, approvalID, fromID, toID string, at time.Time) (bool, error)
}

func (m *Repo) CreateBatch(ctx context.Context, list []*domain.Approval) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, list)
	}
	return nil
}

func (m *Repo) GetByApprovalID(ctx context.Context, approvalID string) (*domain.Approval, error) {
	if m.GetByApprovalIDFn != nil {
		return m.GetByApprovalIDFn(ctx, approvalID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByInvoice(ctx context.Context, invoiceID string) ([]*domain.Approval, error) {
	if m.ListByInvoiceFn != nil {
		return m.ListByInvoiceFn(ctx, invoiceID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLevel(ctx context.Context, invoiceID string, level int) ([]*domain.Approval, error) {
	if m.ListByLevelFn != nil {
		return m.ListByLevelFn(ctx, invoiceID, level)
	}
	return nil, context.Canceled
}

func (m *Repo) ListPendingForActor(ctx context.Context, actorID string) ([]*domain.Approval, error) {
	if m.ListPendingForActorFn != nil {
		return m.ListPendingForActorFn(ctx, actorID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListDueForEscalation(ctx context.Context, now time.Time, limit int) ([]*domain.Approval, error) {
	if m.ListDueForEscalationFn != nil {
		return m.ListDueForEscalationFn(ctx, now, limit)
	}
	return nil, context.Canceled
}

func (m *Repo) ListDueForReminder(ctx context.Context, now, horizon time.Time, limit int) ([]*domain.Approval, error) {
	if m.ListDueForReminderFn != nil {
		return m.ListDueForReminderFn(ctx, now, horizon, limit)
	}
	return nil, context.Canceled
}

func (m *Repo) Activate(ctx context.Context, approvalID string, act domain.Activation) (bool, error) {
	if m.ActivateFn != nil {
		return m.ActivateFn(ctx, approvalID, act)
	}
	return false, nil
}

func (m *Repo) MarkViewed(ctx context.Context, approvalID string, at time.Time) (bool, error) {
	if m.MarkViewedFn != nil {
		return m.MarkViewedFn(ctx, approvalID, at)
	}
	return false, nil
}

func (m *Repo) RecordDecision(ctx context.Context, approvalID string, d domain.Decision, actorID string, comments *string, at time.Time) (bool, error) {
	if m.RecordDecisionFn != nil {
		return m.RecordDecisionFn(ctx, approvalID, d, actorID, comments, at)
	}
	return false, nil
}

func (m *Repo) MarkEscalated(ctx context.Context, approvalID string, esc domain.Escalation) (bool, error) {
	if m.MarkEscalatedFn != nil {
		return m.MarkEscalatedFn(ctx, approvalID, esc)
	}
	return false, nil
}

func (m *Repo) MarkReminded(ctx context.Context, approvalID string, at time.Time) (bool, error) {
	if m.MarkRemindedFn != nil {
		return m.MarkRemindedFn(ctx, approvalID, at)
	}
	return false, nil
}

func (m *Repo) HandOff(ctx context.Context, approvalID, fromID, toID string, at time.Time) (bool, error) {
	if m.HandOffFn != nil {
		return m.HandOffFn(ctx, approvalID, fromID, toID, at)
	}
	return false, nil
}
