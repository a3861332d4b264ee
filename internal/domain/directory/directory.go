package directory

import (
	"context"
	"errors"
	"time"
)

var ErrNoManager = errors.New("user has no manager")

// Directory answers who holds a role and who reports to whom.
type Directory interface {
	// UsersWithRole returns active user ids holding role, sorted ascending.
	UsersWithRole(ctx context.Context, organizationID, role string) ([]string, error)
	// ManagerOf returns ErrNoManager when the user has none.
	ManagerOf(ctx context.Context, organizationID, userID string) (string, error)
}

// Table: directory_users
type User struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID         string    `gorm:"column:user_id;size:64;not null;uniqueIndex" json:"user_id"`
	OrganizationID string    `gorm:"column:organization_id;size:32;not null;index:idx_directory_org_role" json:"organization_id"`
	Role           string    `gorm:"column:role;size:64;not null;index:idx_directory_org_role" json:"role"`
	ManagerID      *string   `gorm:"column:manager_id;size:64" json:"manager_id,omitempty"`
	IsActive       bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "directory_users" }
