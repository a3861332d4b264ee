package delegation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	ErrNotFound          = errors.New("delegation not found")
	ErrInvalidDelegation = errors.New("invalid delegation")
)

type Scope string

const (
	ScopeAll          Scope = "ALL"
	ScopeCategory     Scope = "CATEGORY"
	ScopeAmountCapped Scope = "AMOUNT_CAPPED"
)

func (s Scope) Valid() bool {
	return s == ScopeAll || s == ScopeCategory || s == ScopeAmountCapped
}

// Specificity orders scopes when several delegations cover the same approval.
func (s Scope) Specificity() int {
	switch s {
	case ScopeCategory:
		return 2
	case ScopeAmountCapped:
		return 1
	default:
		return 0
	}
}

// Table: delegated_approvals
type DelegatedApproval struct {
	ID                 uint64                       `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	DelegationID       string                       `gorm:"column:delegation_id;size:32;not null;uniqueIndex" json:"delegation_id"`
	OrganizationID     string                       `gorm:"column:organization_id;size:32;not null;index" json:"organization_id"`
	DelegatorID        string                       `gorm:"column:delegator_id;size:64;not null;index" json:"delegator_id"`
	DelegateeID        string                       `gorm:"column:delegatee_id;size:64;not null" json:"delegatee_id"`
	StartDate          time.Time                    `gorm:"column:start_date;not null" json:"start_date"`
	EndDate            time.Time                    `gorm:"column:end_date;not null" json:"end_date"`
	IsActive           bool                         `gorm:"column:is_active;not null;index" json:"is_active"`
	Scope              Scope                        `gorm:"column:scope;size:20;not null" json:"scope"`
	SpecificCategories datatypes.JSONType[[]string] `gorm:"column:specific_categories" json:"specific_categories"`
	MaxAmount          *decimal.Decimal             `gorm:"column:max_amount;type:decimal(18,2)" json:"max_amount,omitempty"`
	Reason             *string                      `gorm:"column:reason;type:text" json:"reason,omitempty"`
	CreatedAt          time.Time                    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (DelegatedApproval) TableName() string { return "delegated_approvals" }

// InWindow reports whether at falls inside [StartDate, EndDate].
func (d *DelegatedApproval) InWindow(at time.Time) bool {
	return d.IsActive && !at.Before(d.StartDate) && !at.After(d.EndDate)
}

// Covers reports whether the delegation applies to an approval of the given
// amount and category at time at.
func (d *DelegatedApproval) Covers(at time.Time, amount decimal.Decimal, category string) bool {
	if !d.InWindow(at) {
		return false
	}
	switch d.Scope {
	case ScopeAll:
		return true
	case ScopeCategory:
		if category == "" {
			return false
		}
		for _, c := range d.SpecificCategories.Data() {
			if strings.EqualFold(c, category) {
				return true
			}
		}
		return false
	case ScopeAmountCapped:
		return d.MaxAmount != nil && amount.LessThanOrEqual(*d.MaxAmount)
	default:
		return false
	}
}

func (d *DelegatedApproval) Validate() error {
	var problems []string
	if d.OrganizationID == "" {
		problems = append(problems, "organization_id is required")
	}
	if d.DelegatorID == "" || d.DelegateeID == "" {
		problems = append(problems, "delegator_id and delegatee_id are required")
	}
	if d.DelegatorID != "" && d.DelegatorID == d.DelegateeID {
		problems = append(problems, "cannot delegate to self")
	}
	if !d.EndDate.After(d.StartDate) {
		problems = append(problems, "end_date must be after start_date")
	}
	switch d.Scope {
	case ScopeAll:
	case ScopeCategory:
		if len(d.SpecificCategories.Data()) == 0 {
			problems = append(problems, "CATEGORY scope needs specific_categories")
		}
	case ScopeAmountCapped:
		if d.MaxAmount == nil || !d.MaxAmount.IsPositive() {
			problems = append(problems, "AMOUNT_CAPPED scope needs a positive max_amount")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown scope %q", d.Scope))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDelegation, strings.Join(problems, "; "))
	}
	return nil
}
