package audit

import (
	"context"
	"time"
)

// Table: audit_entries
type Entry struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	EntryID        string    `gorm:"column:entry_id;size:32;not null;uniqueIndex" json:"entry_id"`
	OrganizationID string    `gorm:"column:organization_id;size:32;index" json:"organization_id"`
	Action         string    `gorm:"column:action;size:64;not null" json:"action"`
	EntityType     string    `gorm:"column:entity_type;size:32;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID       string    `gorm:"column:entity_id;size:32;not null;index:idx_audit_entity" json:"entity_id"`
	ActorID        string    `gorm:"column:actor_id;size:64" json:"actor_id"`
	OldValue       *string   `gorm:"column:old_value;type:text" json:"old_value,omitempty"`
	NewValue       *string   `gorm:"column:new_value;type:text" json:"new_value,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Entry) TableName() string { return "audit_entries" }

const (
	ActionWorkflowStarted      = "WORKFLOW_STARTED"
	ActionWorkflowBlocked      = "WORKFLOW_BLOCKED"
	ActionApprovalAssigned     = "APPROVAL_ASSIGNED"
	ActionApprovalApproved     = "APPROVAL_APPROVED"
	ActionApprovalRejected     = "APPROVAL_REJECTED"
	ActionApprovalEscalated    = "APPROVAL_ESCALATED"
	ActionApprovalDelegated    = "APPROVAL_DELEGATED"
	ActionApprovalAutoApproved = "APPROVAL_AUTO_APPROVED"
	ActionInvoiceApproved      = "INVOICE_APPROVED"
	ActionInvoiceRejected      = "INVOICE_REJECTED"
	ActionChainCreated         = "CHAIN_CREATED"
	ActionDelegationCreated    = "DELEGATION_CREATED"
	ActionDelegationRevoked    = "DELEGATION_REVOKED"
	ActionRoutingUpdated       = "ROUTING_POLICY_UPDATED"

	EntityApproval   = "approval"
	EntityInvoice    = "invoice"
	EntityChain      = "approval_chain"
	EntityDelegation = "delegation"
	EntityRouting    = "routing_policy"
)

type Recorder interface {
	Record(ctx context.Context, e *Entry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*Entry, error)
}
