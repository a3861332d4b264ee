package chain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	ErrNotFound          = errors.New("approval chain not found")
	ErrInvalidChain      = errors.New("invalid approval chain")
	ErrNoApplicableChain = errors.New("no applicable approval chain")
)

type Type string

const (
	TypeStandard           Type = "STANDARD"
	TypeExpress            Type = "EXPRESS"
	TypeCapitalExpenditure Type = "CAPITAL_EXPENDITURE"
)

func (t Type) Valid() bool {
	return t == TypeStandard || t == TypeExpress || t == TypeCapitalExpenditure
}

// Level is one stage of a chain. A level with neither RequiredRole nor
// SpecificApproverIDs takes its role from the organization's router.
type Level struct {
	LevelNumber          int      `json:"level_number"`
	RequiredRole         string   `json:"required_role,omitempty"`
	SpecificApproverIDs  []string `json:"specific_approver_ids,omitempty"`
	AlternateApproverIDs []string `json:"alternate_approver_ids,omitempty"`
	RequireAll           bool     `json:"require_all"`
}

// RouterDriven reports whether the level defers its role to the router.
func (l Level) RouterDriven() bool {
	return l.RequiredRole == "" && len(l.SpecificApproverIDs) == 0
}

// Table: approval_chains
type ApprovalChain struct {
	ID                  uint64                      `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	ChainID             string                      `gorm:"column:chain_id;size:32;not null;uniqueIndex" json:"chain_id"`
	OrganizationID      string                      `gorm:"column:organization_id;size:32;not null;index" json:"organization_id"`
	Name                string                      `gorm:"column:name;size:120;not null" json:"name"`
	Type                Type                        `gorm:"column:type;size:32;not null" json:"type"`
	Department          *string                     `gorm:"column:department;size:64" json:"department,omitempty"`
	Category            *string                     `gorm:"column:category;size:64" json:"category,omitempty"`
	MinAmount           *decimal.Decimal            `gorm:"column:min_amount;type:decimal(18,2)" json:"min_amount,omitempty"`
	MaxAmount           *decimal.Decimal            `gorm:"column:max_amount;type:decimal(18,2)" json:"max_amount,omitempty"`
	Currency            string                      `gorm:"column:currency;size:3" json:"currency"`
	Levels              datatypes.JSONType[[]Level] `gorm:"column:levels;not null" json:"levels"`
	AutoEscalationHours int                         `gorm:"column:auto_escalation_hours;not null" json:"auto_escalation_hours"`
	ReminderHours       int                         `gorm:"column:reminder_hours;not null" json:"reminder_hours"`
	AllowDelegation     bool                        `gorm:"column:allow_delegation;not null" json:"allow_delegation"`
	RequireAllApprovers bool                        `gorm:"column:require_all_approvers;not null" json:"require_all_approvers"`
	IsActive            bool                        `gorm:"column:is_active;not null;index" json:"is_active"`
	Priority            int                         `gorm:"column:priority;not null" json:"priority"`
	CreatedAt           time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ApprovalChain) TableName() string { return "approval_chains" }

// LevelDefs returns the ordered level definitions.
func (c *ApprovalChain) LevelDefs() []Level { return c.Levels.Data() }

// Level returns the definition for a 1-based level number.
func (c *ApprovalChain) Level(n int) (Level, bool) {
	for _, l := range c.LevelDefs() {
		if l.LevelNumber == n {
			return l, true
		}
	}
	return Level{}, false
}

// Specificity ranks scoping: department+category > category > department > none.
func (c *ApprovalChain) Specificity() int {
	dep := c.Department != nil && *c.Department != ""
	cat := c.Category != nil && *c.Category != ""
	switch {
	case dep && cat:
		return 3
	case cat:
		return 2
	case dep:
		return 1
	default:
		return 0
	}
}

// Validate checks the chain definition before it is saved.
func (c *ApprovalChain) Validate() error {
	var problems []string
	if c.OrganizationID == "" {
		problems = append(problems, "organization_id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !c.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown type %q", c.Type))
	}
	if c.Currency != "" && len(c.Currency) != 3 {
		problems = append(problems, "currency must be a 3-letter code")
	}
	if c.MinAmount != nil && c.MinAmount.IsNegative() {
		problems = append(problems, "min_amount must not be negative")
	}
	if c.MinAmount != nil && c.MaxAmount != nil && c.MinAmount.GreaterThan(*c.MaxAmount) {
		problems = append(problems, "min_amount must not exceed max_amount")
	}
	if c.AutoEscalationHours < 0 || c.ReminderHours < 0 {
		problems = append(problems, "hours must not be negative")
	}

	levels := c.LevelDefs()
	if len(levels) == 0 {
		problems = append(problems, "at least one level is required")
	}
	for i, l := range levels {
		if l.LevelNumber != i+1 {
			problems = append(problems, fmt.Sprintf("level %d: numbers must be contiguous from 1 in order", i+1))
		}
		seen := make(map[string]struct{}, len(l.SpecificApproverIDs))
		for _, id := range l.SpecificApproverIDs {
			if id == "" {
				problems = append(problems, fmt.Sprintf("level %d: empty approver id", l.LevelNumber))
				continue
			}
			if _, dup := seen[id]; dup {
				problems = append(problems, fmt.Sprintf("level %d: duplicate approver %s", l.LevelNumber, id))
			}
			seen[id] = struct{}{}
		}
		for _, id := range l.AlternateApproverIDs {
			if _, clash := seen[id]; clash {
				problems = append(problems, fmt.Sprintf("level %d: %s is both specific and alternate", l.LevelNumber, id))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidChain, strings.Join(problems, "; "))
	}
	return nil
}
