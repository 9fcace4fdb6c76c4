package db

import (
	"context"

	"school_inventory_tool/models"
)

// ItemHistory returns status changes for an item, newest first.
func (r *Repo) ItemHistory(ctx context.Context, itemID uint, limit int) ([]models.StatusHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.StatusHistory
	err := r.DB.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("changed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
