package routing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var ErrNotFound = errors.New("routing policy not found")

// Threshold maps amounts up to UpTo (inclusive) to Role. The last threshold
// has no UpTo and catches everything above.
type Threshold struct {
	UpTo *decimal.Decimal `json:"up_to,omitempty"`
	Role string           `json:"role"`
}

// Table: routing_policies. One row per organization.
type Policy struct {
	ID                  uint64                          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	OrganizationID      string                          `gorm:"column:organization_id;size:32;not null;uniqueIndex" json:"organization_id"`
	Thresholds          datatypes.JSONType[[]Threshold] `gorm:"column:thresholds;not null" json:"thresholds"`
	EscalationThreshold decimal.Decimal                 `gorm:"column:escalation_threshold;type:decimal(18,2);not null" json:"escalation_threshold"`
	CreatedAt           time.Time                       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time                       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Policy) TableName() string { return "routing_policies" }
