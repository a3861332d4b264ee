package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	directoryDomain "invoice-approval-engine/internal/domain/directory"
)

var _ directoryDomain.Directory = (*DirectoryRepository)(nil)

// DirectoryRepository answers role and reporting-line questions from the
// directory_users table.
type DirectoryRepository struct{ db *gorm.DB }

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository { return &DirectoryRepository{db: db} }

// Upsert inserts or replaces a directory user by user_id.
func (r *DirectoryRepository) Upsert(ctx context.Context, u *directoryDomain.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"organization_id", "role", "manager_id", "is_active", "updated_at"}),
		}).
		Create(u).Error
}

func (r *DirectoryRepository) UsersWithRole(ctx context.Context, organizationID, role string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&directoryDomain.User{}).
		Where("organization_id = ? AND role = ? AND is_active = ?", organizationID, role, true).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *DirectoryRepository) ManagerOf(ctx context.Context, organizationID, userID string) (string, error) {
	var u directoryDomain.User
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", directoryDomain.ErrNoManager
	}
	if err != nil {
		return "", err
	}
	if u.ManagerID == nil || *u.ManagerID == "" {
		return "", directoryDomain.ErrNoManager
	}
	return *u.ManagerID, nil
}
