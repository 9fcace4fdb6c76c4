// db/repo_users_admin.go
package db

import (
	"context"

	"school_inventory_tool/models"
)

func (r *Repo) SetUserRole(ctx context.Context, userID, role string) error {
	if !models.ValidRole(role) {
		return ErrInvalidRole
	}
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&n).Error
	return n, err
}
