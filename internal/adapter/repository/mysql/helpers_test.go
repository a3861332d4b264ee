package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	approvalDomain "invoice-approval-engine/internal/domain/approval"
	invoiceDomain "invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/testutil/testdb"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testdb.Open(t)
}

func seedInvoice(t *testing.T, db *gorm.DB, invoiceID string, status invoiceDomain.ApprovalStatus) *invoiceDomain.Invoice {
	t.Helper()
	inv := &invoiceDomain.Invoice{
		InvoiceID:          invoiceID,
		OrganizationID:     "org1",
		InvoiceNumber:      "INV-" + invoiceID,
		TotalAmount:        decimal.NewFromInt(75000),
		Currency:           "USD",
		BaseCurrency:       "USD",
		BaseCurrencyAmount: decimal.NewFromInt(75000),
		ApprovalStatus:     status,
		CurrentStage:       1,
		TotalStages:        2,
	}
	if err := NewInvoiceRepository(db).Create(context.Background(), inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv
}

func makeApproval(approvalID, invoiceID, approver string, level int, assigned bool) *approvalDomain.Approval {
	a := &approvalDomain.Approval{
		ApprovalID:      approvalID,
		OrganizationID:  "org1",
		InvoiceID:       invoiceID,
		ApprovalChainID: "chain1",
		ApproverID:      approver,
		RequiredRole:    "BRANCH_MANAGER",
		Level:           level,
		Sequence:        1,
		Status:          approvalDomain.StatusPending,
	}
	if assigned {
		at, due := t0, t0.Add(48*time.Hour)
		a.AssignedAt = &at
		a.SLADueDate = &due
	}
	return a
}
