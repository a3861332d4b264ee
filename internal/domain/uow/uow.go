package uow

import (
	"context"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/delegation"
	"invoice-approval-engine/internal/domain/invoice"
)

// Repos are bound to the running transaction. Code inside WithinTx must only
// touch storage through them.
type Repos struct {
	Approvals   approval.Repository
	Invoices    invoice.Repository
	Chains      chain.Repository
	Delegations delegation.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the invoice row first, then pass it in
	WithinInvoiceTx(ctx context.Context, invoiceID string, fn func(r Repos, inv *invoice.Invoice) error) error
}
