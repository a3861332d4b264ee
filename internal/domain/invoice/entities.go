package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("invoice not found")
	ErrWorkflowStarted = errors.New("approval workflow already started")
	ErrWorkflowClosed  = errors.New("approval workflow is closed")
	ErrNegativeAmount  = errors.New("invoice amount must not be negative")
)

type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "NONE"
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
	// ApprovalBlocked marks an invoice for which no chain or approver could be
	// resolved. Starting the workflow again is allowed once configuration is fixed.
	ApprovalBlocked ApprovalStatus = "BLOCKED"
)

// Startable reports whether a workflow may be started from s.
func (s ApprovalStatus) Startable() bool {
	return s == "" || s == ApprovalNone || s == ApprovalBlocked
}

// Table: invoices. Only the approval-related columns are owned here.
type Invoice struct {
	ID                 uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	InvoiceID          string          `gorm:"column:invoice_id;size:32;not null;uniqueIndex" json:"invoice_id"`
	OrganizationID     string          `gorm:"column:organization_id;size:32;not null;index" json:"organization_id"`
	InvoiceNumber      string          `gorm:"column:invoice_number;size:64" json:"invoice_number"`
	TotalAmount        decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	Currency           string          `gorm:"column:currency;size:3;not null" json:"currency"`
	BaseCurrency       string          `gorm:"column:base_currency;size:3" json:"base_currency"`
	BaseCurrencyAmount decimal.Decimal `gorm:"column:base_currency_amount;type:decimal(18,2);not null" json:"base_currency_amount"`
	Category           *string         `gorm:"column:category;size:64" json:"category,omitempty"`
	Department         *string         `gorm:"column:department;size:64" json:"department,omitempty"`
	ApprovalStatus     ApprovalStatus  `gorm:"column:approval_status;size:20;not null;index" json:"approval_status"`
	BlockedReason      *string         `gorm:"column:blocked_reason;type:text" json:"blocked_reason,omitempty"`
	ApprovalChainID    *string         `gorm:"column:approval_chain_id;size:32" json:"approval_chain_id,omitempty"`
	CurrentStage       int             `gorm:"column:current_stage;not null" json:"current_stage"`
	TotalStages        int             `gorm:"column:total_stages;not null" json:"total_stages"`
	CurrentApproverID  *string         `gorm:"column:current_approver_id;size:64" json:"current_approver_id,omitempty"`
	NextApproverID     *string         `gorm:"column:next_approver_id;size:64" json:"next_approver_id,omitempty"`
	FullyApproved      bool            `gorm:"column:fully_approved;not null" json:"fully_approved"`
	ReadyForPayment    bool            `gorm:"column:ready_for_payment;not null" json:"ready_for_payment"`
	SubmittedBy        *string         `gorm:"column:submitted_by;size:64" json:"submitted_by,omitempty"`
	SubmittedAt        *time.Time      `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt         *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectedAt         *time.Time      `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// RoutingAmount is the amount compared against chain bounds and router
// thresholds: the base-currency amount when known, else the face amount.
func (i *Invoice) RoutingAmount() decimal.Decimal {
	if i.BaseCurrency != "" && !i.BaseCurrencyAmount.IsZero() {
		return i.BaseCurrencyAmount
	}
	return i.TotalAmount
}

func (i *Invoice) CategoryValue() string {
	if i.Category == nil {
		return ""
	}
	return *i.Category
}

func (i *Invoice) DepartmentValue() string {
	if i.Department == nil {
		return ""
	}
	return *i.Department
}
