package notify

import "context"

type Type string

const (
	TypeApprovalAssigned  Type = "APPROVAL_ASSIGNED"
	TypeApprovalReminder  Type = "APPROVAL_REMINDER"
	TypeApprovalEscalated Type = "APPROVAL_ESCALATED"
	TypeApprovalDelegated Type = "APPROVAL_DELEGATED"
	TypeInvoiceApproved   Type = "INVOICE_APPROVED"
	TypeInvoiceRejected   Type = "INVOICE_REJECTED"
	TypeWorkflowBlocked   Type = "WORKFLOW_BLOCKED"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Notification struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Type           Type      `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Priority       Priority  `json:"priority"`
	Entity         EntityRef `json:"entity"`
}

// Dispatcher delivers notifications. Callers treat failures as non-fatal.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}
