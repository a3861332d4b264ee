package workflow

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/invoice"
)

var (
	ErrNoEscalationTarget   = errors.New("no escalation target could be resolved")
	ErrDelegationNotAllowed = errors.New("approval chain does not allow delegation")
	ErrInvalidDelegatee     = errors.New("delegatee must be a different user")
)

// Config holds the engine's policy knobs.
type Config struct {
	DefaultSLA         time.Duration
	DefaultReminder    time.Duration
	AutoApproveBelow   decimal.Decimal
	FinanceManagerRole string
	AdminRole          string
}

type StartResult struct {
	Invoice      *invoice.Invoice
	Chain        *chain.ApprovalChain
	Approvals    []*approval.Approval
	AutoApproved bool
}

type DecideInput struct {
	ApprovalID string
	ActorID    string
	Decision   approval.Decision
	Comments   *string
}

// DecideResult carries the decided approval. Replayed is set when the same
// decision had already been recorded and nothing changed.
type DecideResult struct {
	Approval  *approval.Approval
	Invoice   *invoice.Invoice
	Activated []*approval.Approval
	Replayed  bool
}

type DelegateInput struct {
	ApprovalID  string
	ActorID     string
	DelegateeID string
	Reason      *string
}
