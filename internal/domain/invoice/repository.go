package invoice

import (
	"context"
	"time"
)

// WorkflowStart is written when approvals are created for an invoice.
type WorkflowStart struct {
	ChainID           string
	TotalStages       int
	CurrentStage      int
	CurrentApproverID *string
	NextApproverID    *string
	SubmittedBy       *string
	At                time.Time
}

// Repository owns the approval columns of an invoice. Mutators are conditional
// updates and report false when the precondition no longer holds.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*Invoice, error)
	// lock row (FOR UPDATE) when inside a transaction
	GetForUpdate(ctx context.Context, invoiceID string) (*Invoice, error)

	// approval_status IN ('', NONE, BLOCKED) -> PENDING
	BeginWorkflow(ctx context.Context, invoiceID string, ws WorkflowStart) (bool, error)
	// approval_status IN ('', NONE, BLOCKED) -> BLOCKED
	Block(ctx context.Context, invoiceID, reason string, at time.Time) (bool, error)
	// PENDING and current_stage = from -> from+1
	AdvanceStage(ctx context.Context, invoiceID string, from int) (bool, error)
	// PENDING and current_stage = stage -> APPROVED, fully approved, ready for payment
	Complete(ctx context.Context, invoiceID string, stage int, at time.Time) (bool, error)
	// PENDING -> REJECTED
	Reject(ctx context.Context, invoiceID string, at time.Time) (bool, error)
	SetApprovers(ctx context.Context, invoiceID string, current, next *string) error
}
