package db

import (
	"gorm.io/gorm"

	"invoice-approval-engine/internal/domain/approval"
	"invoice-approval-engine/internal/domain/audit"
	"invoice-approval-engine/internal/domain/chain"
	"invoice-approval-engine/internal/domain/delegation"
	"invoice-approval-engine/internal/domain/directory"
	"invoice-approval-engine/internal/domain/invoice"
	"invoice-approval-engine/internal/domain/routing"
)

// Models lists every table the engine owns.
func Models() []any {
	return []any{
		&invoice.Invoice{},
		&chain.ApprovalChain{},
		&approval.Approval{},
		&delegation.DelegatedApproval{},
		&routing.Policy{},
		&directory.User{},
		&audit.Entry{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
