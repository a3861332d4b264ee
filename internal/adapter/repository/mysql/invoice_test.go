package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	invoiceDomain "invoice-approval-engine/internal/domain/invoice"
)

func TestInvoice_WorkflowLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()
	seedInvoice(t, db, "INV1", invoiceDomain.ApprovalNone)

	if _, err := repo.GetByInvoiceID(ctx, "missing"); !errors.Is(err, invoiceDomain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	bm, fm, clerk := "bm1", "fm1", "clerk"
	ws := invoiceDomain.WorkflowStart{ChainID: "c1", TotalStages: 2, CurrentStage: 1, CurrentApproverID: &bm, NextApproverID: &fm, SubmittedBy: &clerk, At: t0}
	if ok, err := repo.BeginWorkflow(ctx, "INV1", ws); !ok || err != nil {
		t.Fatalf("BeginWorkflow: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.BeginWorkflow(ctx, "INV1", ws); ok {
		t.Fatal("workflow started twice")
	}
	if ok, _ := repo.Block(ctx, "INV1", "nope", t0); ok {
		t.Fatal("pending invoice blocked")
	}

	// stage guard: only one advance from stage 1
	if ok, _ := repo.AdvanceStage(ctx, "INV1", 1); !ok {
		t.Fatal("advance must apply")
	}
	if ok, _ := repo.AdvanceStage(ctx, "INV1", 1); ok {
		t.Fatal("stage advanced twice")
	}
	if ok, _ := repo.Complete(ctx, "INV1", 1, t0); ok {
		t.Fatal("completed from a stale stage")
	}
	if ok, _ := repo.Complete(ctx, "INV1", 2, t0.Add(time.Hour)); !ok {
		t.Fatal("complete must apply")
	}
	if ok, _ := repo.Reject(ctx, "INV1", t0); ok {
		t.Fatal("approved invoice rejected")
	}

	got, err := repo.GetByInvoiceID(ctx, "INV1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ApprovalStatus != invoiceDomain.ApprovalApproved || !got.FullyApproved || !got.ReadyForPayment ||
		got.CurrentStage != 2 || got.CurrentApproverID != nil || *got.SubmittedBy != "clerk" {
		t.Fatalf("unexpected invoice: %+v", got)
	}
}

func TestInvoice_BlockThenRestart(t *testing.T) {
	db := openTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()
	seedInvoice(t, db, "INV1", invoiceDomain.ApprovalNone)

	if ok, _ := repo.Block(ctx, "INV1", "no chain", t0); !ok {
		t.Fatal("block must apply")
	}
	got, _ := repo.GetByInvoiceID(ctx, "INV1")
	if got.ApprovalStatus != invoiceDomain.ApprovalBlocked || *got.BlockedReason != "no chain" {
		t.Fatalf("unexpected: %+v", got)
	}

	if ok, _ := repo.BeginWorkflow(ctx, "INV1", invoiceDomain.WorkflowStart{ChainID: "c1", TotalStages: 1, CurrentStage: 1, At: t0}); !ok {
		t.Fatal("blocked invoice must be restartable")
	}
	got, _ = repo.GetByInvoiceID(ctx, "INV1")
	if got.BlockedReason != nil || got.ApprovalStatus != invoiceDomain.ApprovalPending {
		t.Fatalf("restart did not clear block: %+v", got)
	}

	if ok, _ := repo.Reject(ctx, "INV1", t0); !ok {
		t.Fatal("reject must apply")
	}
	if ok, _ := repo.BeginWorkflow(ctx, "INV1", invoiceDomain.WorkflowStart{ChainID: "c1", TotalStages: 1, CurrentStage: 1, At: t0}); ok {
		t.Fatal("rejected invoice restarted")
	}
}

func TestInvoice_SetApprovers(t *testing.T) {
	db := openTestDB(t)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()
	seedInvoice(t, db, "INV1", invoiceDomain.ApprovalPending)

	cur := "boss"
	if err := repo.SetApprovers(ctx, "INV1", &cur, nil); err != nil {
		t.Fatalf("SetApprovers: %v", err)
	}
	got, _ := repo.GetByInvoiceID(ctx, "INV1")
	if got.CurrentApproverID == nil || *got.CurrentApproverID != "boss" || got.NextApproverID != nil {
		t.Fatalf("unexpected approvers: %+v", got)
	}
	if !got.TotalAmount.Equal(got.BaseCurrencyAmount) || got.TotalAmount.IntPart() != 75000 {
		t.Fatalf("amount not preserved: %s", got.TotalAmount)
	}
}
