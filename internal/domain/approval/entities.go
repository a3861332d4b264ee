package approval

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrNotFound            = errors.New("approval not found")
	ErrInvalidTransition   = errors.New("invalid approval transition")
	ErrNotAssignedApprover = errors.New("user is not the assigned approver")
	ErrInvalidDecision     = errors.New("decision must be APPROVE or REJECT")
	ErrCommentsRequired    = errors.New("comments are required to reject")
)

type Status string

const (
	StatusPending      Status = "PENDING"
	StatusApproved     Status = "APPROVED"
	StatusRejected     Status = "REJECTED"
	StatusEscalated    Status = "ESCALATED"
	StatusAutoApproved Status = "AUTO_APPROVED"
	// StatusDelegated is kept for compatibility with stored rows; delegation is
	// recorded through IsDelegated and never reached by a transition.
	StatusDelegated Status = "DELEGATED"
)

// Terminal statuses never transition again.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusAutoApproved
}

// Decidable reports whether Decide is legal from s.
func (s Status) Decidable() bool { return s == StatusPending || s == StatusEscalated }

// Satisfied reports whether s counts towards completing a level.
func (s Status) Satisfied() bool { return s == StatusApproved || s == StatusAutoApproved }

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

func (d Decision) Valid() bool { return d == DecisionApprove || d == DecisionReject }

// Status is the terminal status a decision leads to.
func (d Decision) Status() Status {
	if d == DecisionReject {
		return StatusRejected
	}
	return StatusApproved
}

// Candidates is a JSON list of user ids.
type Candidates = datatypes.JSONType[[]string]

// Table: approvals. Rows are the audit trail and are never deleted.
type Approval struct {
	ID              uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	ApprovalID      string     `gorm:"column:approval_id;size:32;not null;uniqueIndex" json:"approval_id"`
	OrganizationID  string     `gorm:"column:organization_id;size:32;not null;index" json:"organization_id"`
	InvoiceID       string     `gorm:"column:invoice_id;size:32;not null;index:idx_approvals_invoice_level" json:"invoice_id"`
	ApprovalChainID string     `gorm:"column:approval_chain_id;size:32;not null" json:"approval_chain_id"`
	ApproverID      string     `gorm:"column:approver_id;size:64;not null;index" json:"approver_id"`
	// CandidateIDs is the eligible set of a single-signature level; any one
	// of them may decide. Empty for require-all levels.
	CandidateIDs    Candidates `gorm:"column:candidate_ids" json:"candidate_ids"`
	RequiredRole    string     `gorm:"column:required_role;size:64" json:"required_role,omitempty"`
	Level           int        `gorm:"column:level;not null;index:idx_approvals_invoice_level" json:"level"`
	Sequence        int        `gorm:"column:sequence;not null" json:"sequence"`
	RequireAll      bool       `gorm:"column:require_all;not null" json:"require_all"`
	Status          Status     `gorm:"column:status;size:20;not null;index" json:"status"`
	Decision        *Decision  `gorm:"column:decision;size:10" json:"decision,omitempty"`
	Comments        *string    `gorm:"column:comments;type:text" json:"comments,omitempty"`
	DecidedByID     *string    `gorm:"column:decided_by_id;size:64" json:"decided_by_id,omitempty"`
	SLADueDate      *time.Time `gorm:"column:sla_due_date;index" json:"sla_due_date,omitempty"`
	SLABreachDate   *time.Time `gorm:"column:sla_breach_date" json:"sla_breach_date,omitempty"`
	IsDelegated     bool       `gorm:"column:is_delegated;not null" json:"is_delegated"`
	DelegatedFromID *string    `gorm:"column:delegated_from_id;size:64" json:"delegated_from_id,omitempty"`
	DelegatedToID   *string    `gorm:"column:delegated_to_id;size:64;index" json:"delegated_to_id,omitempty"`
	IsEscalated     bool       `gorm:"column:is_escalated;not null" json:"is_escalated"`
	EscalatedToID   *string    `gorm:"column:escalated_to_id;size:64;index" json:"escalated_to_id,omitempty"`
	EscalatedReason *string    `gorm:"column:escalated_reason;type:text" json:"escalated_reason,omitempty"`
	EscalatedAt     *time.Time `gorm:"column:escalated_at" json:"escalated_at,omitempty"`
	AssignedAt      *time.Time `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	ViewedAt        *time.Time `gorm:"column:viewed_at" json:"viewed_at,omitempty"`
	ActionedAt      *time.Time `gorm:"column:actioned_at" json:"actioned_at,omitempty"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectedAt      *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	ReminderSentAt  *time.Time `gorm:"column:reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Approval) TableName() string { return "approvals" }

// Active is false for approvals of a level that has not been reached yet.
func (a *Approval) Active() bool { return a.AssignedAt != nil }

// Actor is the user currently expected to act: the escalation target, else the
// delegatee, else the nominal approver.
func (a *Approval) Actor() string {
	switch {
	case a.IsEscalated && a.EscalatedToID != nil:
		return *a.EscalatedToID
	case a.IsDelegated && a.DelegatedToID != nil:
		return *a.DelegatedToID
	default:
		return a.ApproverID
	}
}

// Eligible lists the users who may act, current actor first. Candidates of a
// single-signature level share the approval until it is escalated; a
// delegator is left out while the delegation stands.
func (a *Approval) Eligible() []string {
	actor := a.Actor()
	out := []string{actor}
	if a.IsEscalated {
		return out
	}
	for _, c := range a.CandidateIDs.Data() {
		if c == "" || c == actor || slices.Contains(out, c) {
			continue
		}
		if a.IsDelegated && a.DelegatedFromID != nil && *a.DelegatedFromID == c {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CanAct reports whether userID may decide or view the approval as an approver.
func (a *Approval) CanAct(userID string) bool {
	return userID != "" && slices.Contains(a.Eligible(), userID)
}

// InvalidTransitionError is returned when an operation is not legal from the
// approval's current status. State is never mutated when it is returned.
type InvalidTransitionError struct {
	ApprovalID string
	From       Status
	Op         string
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("approval %s: cannot %s from %s", e.ApprovalID, e.Op, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
