package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"invoice-approval-engine/internal/adapter/repository/mysql"
	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/testutil/auditmock"
	"invoice-approval-engine/internal/testutil/directorymock"
	"invoice-approval-engine/internal/testutil/notifymock"
	"invoice-approval-engine/internal/testutil/testdb"
	"invoice-approval-engine/internal/usecase/chainresolver"
	"invoice-approval-engine/internal/usecase/delegation"
	"invoice-approval-engine/internal/usecase/router"
	"invoice-approval-engine/pkg/clock"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	db          *gorm.DB
	uc          *Usecase
	clk         *clock.Fake
	notes       *notifymock.Recorder
	audit       *auditmock.Recorder
	dir         *directorymock.Static
	chains      *mysql.ChainRepository
	invoices    *mysql.InvoiceRepository
	approvals   *mysql.ApprovalRepository
	delegations *mysql.DelegationRepository
}

// defaultDirectory: bm1 reports to fm2; fm1 and fm2 share the finance role.
func defaultDirectory() *directorymock.Static {
	return &directorymock.Static{
		Roles: map[string]string{
			"bm1":    "BRANCH_MANAGER",
			"bm2":    "BRANCH_MANAGER",
			"fm1":    "FINANCIAL_MANAGER",
			"fm2":    "FINANCIAL_MANAGER",
			"exec1":  "EXECUTIVE",
			"admin1": "ADMIN",
		},
		Managers: map[string]string{"bm1": "fm2"},
	}
}

func newHarness(t *testing.T, dir *directorymock.Static, cfg Config) *harness {
	t.Helper()
	db := testdb.Open(t)
	if dir == nil {
		dir = defaultDirectory()
	}
	if cfg.FinanceManagerRole == "" {
		cfg.FinanceManagerRole = "FINANCIAL_MANAGER"
	}
	if cfg.AdminRole == "" {
		cfg.AdminRole = "ADMIN"
	}

	h := &harness{
		db:          db,
		clk:         clock.NewFake(t0),
		notes:       &notifymock.Recorder{},
		audit:       &auditmock.Recorder{},
		dir:         dir,
		chains:      mysql.NewChainRepository(db),
		invoices:    mysql.NewInvoiceRepository(db),
		approvals:   mysql.NewApprovalRepository(db),
		delegations: mysql.NewDelegationRepository(db),
	}
	log := zerolog.Nop()
	h.uc = NewUsecase(Deps{
		UoW:         mysql.NewGormUoW(db),
		Approvals:   h.approvals,
		Invoices:    h.invoices,
		Chains:      h.chains,
		Resolver:    chainresolver.NewUsecase(h.chains, dir, nil, h.audit, h.clk, log),
		Delegations: delegation.NewUsecase(h.delegations, h.audit, h.clk, log),
		Routers:     router.NewUsecase(nil, router.MustDefault(), h.audit, log),
		Directory:   dir,
		Notifier:    h.notes,
		Audit:       h.audit,
		Clock:       h.clk,
		Log:         log,
	}, cfg)
	return h
}

// twoLevelChain: branch manager first, then whatever role the router picks.
func twoLevelChain(chainID string) *chain.ApprovalChain {
	return &chain.ApprovalChain{
		ChainID:        chainID,
		OrganizationID: "org1",
		Name:           "Standard",
		Type:           chain.TypeStandard,
		Currency:       "USD",
		Levels: datatypes.NewJSONType([]chain.Level{
			{LevelNumber: 1, RequiredRole: "BRANCH_MANAGER"},
			{LevelNumber: 2},
		}),
		AutoEscalationHours: 48,
		ReminderHours:       12,
		AllowDelegation:     true,
		IsActive:            true,
	}
}

func (h *harness) seedChain(t *testing.T, c *chain.ApprovalChain) {
	t.Helper()
	if err := h.chains.Create(context.Background(), c); err != nil {
		t.Fatalf("seed chain: %v", err)
	}
}

func (h *harness) seedInvoice(t *testing.T, invoiceID string, amount int64) {
	t.Helper()
	inv := &invoice.Invoice{
		InvoiceID:          invoiceID,
		OrganizationID:     "org1",
		InvoiceNumber:      "INV-" + invoiceID,
		TotalAmount:        decimal.NewFromInt(amount),
		Currency:           "USD",
		BaseCurrency:       "USD",
		BaseCurrencyAmount: decimal.NewFromInt(amount),
		ApprovalStatus:     invoice.ApprovalNone,
	}
	if err := h.invoices.Create(context.Background(), inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func (h *harness) invoice(t *testing.T, invoiceID string) *invoice.Invoice {
	t.Helper()
	inv, err := h.invoices.GetByInvoiceID(context.Background(), invoiceID)
	if err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	return inv
}

func (h *harness) approval(t *testing.T, approvalID string) *approval.Approval {
	t.Helper()
	a, err := h.approvals.GetByApprovalID(context.Background(), approvalID)
	if err != nil {
		t.Fatalf("load approval: %v", err)
	}
	return a
}

// start runs Start on a fresh 75k invoice and returns the level-1 approval.
func (h *harness) start(t *testing.T, invoiceID string) (*StartResult, *approval.Approval) {
	t.Helper()
	res, err := h.uc.Start(context.Background(), invoiceID, "sub1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, a := range res.Approvals {
		if a.Level == 1 {
			return res, a
		}
	}
	t.Fatalf("no level 1 approval in %d approvals", len(res.Approvals))
	return nil, nil
}

func (h *harness) decide(t *testing.T, approvalID, actor string, d approval.Decision, comments string) *DecideResult {
	t.Helper()
	in := DecideInput{ApprovalID: approvalID, ActorID: actor, Decision: d}
	if comments != "" {
		in.Comments = &comments
	}
	res, err := h.uc.Decide(context.Background(), in)
	if err != nil {
		t.Fatalf("decide %s by %s: %v", d, actor, err)
	}
	return res
}

func ptrTo(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func countAction(rec *auditmock.Recorder, action string) int {
	n := 0
	for _, a := range rec.Actions() {
		if a == action {
			n++
		}
	}
	return n
}
