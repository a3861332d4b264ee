package approval

import (
	"context"
	"time"
)

// Activation carries the fields written when an inert approval becomes live.
type Activation struct {
	AssignedAt      time.Time
	SLADueDate      time.Time
	DelegatedFromID *string
	DelegatedToID   *string
}

// Escalation carries the fields written by the escalate transition.
type Escalation struct {
	At     time.Time
	ToID   string
	Reason string
}

// Repository persists approvals. Every mutating method is a conditional update:
// it returns false, without error, when the row no longer satisfies the
// transition's precondition.
type Repository interface {
	CreateBatch(ctx context.Context, list []*Approval) error
	GetByApprovalID(ctx context.Context, approvalID string) (*Approval, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Approval, error)
	ListByLevel(ctx context.Context, invoiceID string, level int) ([]*Approval, error)
	ListPendingForActor(ctx context.Context, actorID string) ([]*Approval, error)

	// Scheduler queries only return approvals of invoices still awaiting approval.
	ListDueForEscalation(ctx context.Context, now time.Time, limit int) ([]*Approval, error)
	ListDueForReminder(ctx context.Context, now, horizon time.Time, limit int) ([]*Approval, error)

	// pending + inert -> assigned
	Activate(ctx context.Context, approvalID string, act Activation) (bool, error)
	// viewed_at IS NULL
	MarkViewed(ctx context.Context, approvalID string, at time.Time) (bool, error)
	// status IN (PENDING, ESCALATED) and assigned
	RecordDecision(ctx context.Context, approvalID string, d Decision, actorID string, comments *string, at time.Time) (bool, error)
	// status = PENDING, not escalated, assigned, sla_due_date < esc.At
	MarkEscalated(ctx context.Context, approvalID string, esc Escalation) (bool, error)
	// status = PENDING, assigned, reminder_sent_at IS NULL
	MarkReminded(ctx context.Context, approvalID string, at time.Time) (bool, error)
	// status = PENDING, not escalated, assigned
	HandOff(ctx context.Context, approvalID, fromID, toID string, at time.Time) (bool, error)
}
