package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"school_inventory_tool/models"
)

type CreateItemInput struct {
	Name        string
	Description string
	Category    string
	Status      string // 为空时按类别和数量推导
	Quantity    int
	CreatedBy   string
}

func (r *Repo) CreateItem(ctx context.Context, in CreateItemInput) (*models.InventoryItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrMissingName
	}
	if !models.ValidCategory(in.Category) {
		return nil, ErrInvalidCategory
	}
	if in.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	status := in.Status
	if status == "" {
		status = models.DefaultStatus(in.Category, in.Quantity)
	}
	// in_use 只能由审批产生
	if !models.ValidStatusFor(in.Category, status) || status == models.StatusInUse {
		return nil, ErrInvalidStatus
	}
	if !suppliesStatusMatches(in.Category, status, in.Quantity) {
		return nil, ErrInvalidStatus
	}

	it := &models.InventoryItem{
		Name:        name,
		Description: in.Description,
		Category:    in.Category,
		Status:      status,
		Quantity:    in.Quantity,
		CreatedBy:   in.CreatedBy,
	}
	if err := r.DB.WithContext(ctx).Create(it).Error; err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

func (r *Repo) GetItem(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &it, nil
}

type ItemFilter struct {
	Q        string
	Category string
	Status   string
	Page     int
	Size     int
}

type PagedItems struct {
	Total int64                  `json:"total"`
	Items []models.InventoryItem `json:"items"`
}

// visibleTo scopes q to the items caller may see. Admins see everything and
// managers their own rows. Everyone else sees items whose creating manager
// shares a department or course with them.
func visibleTo(q *gorm.DB, caller models.Caller) *gorm.DB {
	t := models.ItemTable
	switch caller.Role {
	case models.RoleAdmin:
		return q
	case models.RoleManager:
		return q.Where(t+".created_by = ?", caller.ID)
	}
	q = q.Joins("JOIN "+models.UserTable+" m ON m.id = "+t+".created_by").
		Where(t+".status <> ? OR "+t+".claimed_by = ?", models.StatusInUse, caller.ID)
	switch {
	case caller.Department != "" && caller.Course != "":
		return q.Where("(m.department <> '' AND m.department = ?) OR (m.course <> '' AND m.course = ?)",
			caller.Department, caller.Course)
	case caller.Department != "":
		return q.Where("m.department <> '' AND m.department = ?", caller.Department)
	case caller.Course != "":
		return q.Where("m.course <> '' AND m.course = ?", caller.Course)
	default:
		return q.Where("1 = 0")
	}
}

func (r *Repo) ListItems(ctx context.Context, caller models.Caller, f ItemFilter) (*PagedItems, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Size <= 0 || f.Size > 200 {
		f.Size = 50
	}
	t := models.ItemTable

	q := visibleTo(r.DB.WithContext(ctx).Model(&models.InventoryItem{}), caller)
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		q = q.Where("LOWER("+t+".name) LIKE ? OR LOWER("+t+".description) LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where(t+".category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where(t+".status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.InventoryItem
	if err := q.Select(t + ".*").
		Order(t + ".created_at DESC").
		Offset((f.Page - 1) * f.Size).
		Limit(f.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedItems{Total: total, Items: items}, nil
}

// CanSee reports whether caller may read item.
func (r *Repo) CanSee(ctx context.Context, caller models.Caller, itemID uint) (bool, error) {
	var n int64
	err := visibleTo(r.DB.WithContext(ctx).Model(&models.InventoryItem{}), caller).
		Where(models.ItemTable+".id = ?", itemID).
		Count(&n).Error
	return n > 0, err
}

// UpdateItemInput: nil 表示不修改
type UpdateItemInput struct {
	Name        *string
	Description *string
	Status      *string
	Quantity    *int
}

// UpdateItem applies a manager edit. A status change appends a StatusHistory
// row in the same transaction; if that insert fails the edit rolls back.
func (r *Repo) UpdateItem(ctx context.Context, id uint, in UpdateItemInput, actorID string) (*models.InventoryItem, error) {
	var it models.InventoryItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockItem(tx, id, &it); err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{"updated_at": now}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrMissingName
			}
			updates["name"] = name
			it.Name = name
		}
		if in.Description != nil {
			updates["description"] = *in.Description
			it.Description = *in.Description
		}
		if in.Quantity != nil {
			// 借出行的数量只随申领/归还变化
			if it.Status == models.StatusInUse {
				return ErrItemCheckedOut
			}
			if *in.Quantity < 0 {
				return ErrInvalidQuantity
			}
			updates["quantity"] = *in.Quantity
			it.Quantity = *in.Quantity
		}

		oldStatus := it.Status
		newStatus := oldStatus
		if in.Status != nil {
			newStatus = *in.Status
		} else if in.Quantity != nil && it.Category == models.CategorySupplies {
			// supplies 状态跟随库存
			newStatus = models.DefaultStatus(it.Category, it.Quantity)
		}
		if newStatus != oldStatus {
			if !models.ValidStatusFor(it.Category, newStatus) || newStatus == models.StatusInUse || oldStatus == models.StatusInUse {
				return ErrInvalidStatus
			}
		}
		if !suppliesStatusMatches(it.Category, newStatus, it.Quantity) {
			return ErrInvalidStatus
		}
		if newStatus != oldStatus {
			updates["status"] = newStatus
			it.Status = newStatus
		}

		if err := tx.Model(&models.InventoryItem{}).Where("id = ?", it.ID).Updates(updates).Error; err != nil {
			return err
		}
		it.UpdatedAt = now

		if newStatus != oldStatus {
			h := models.StatusHistory{
				ItemID:    it.ID,
				OldStatus: oldStatus,
				NewStatus: newStatus,
				ChangedBy: actorID,
				ChangedAt: now,
			}
			if err := tx.Create(&h).Error; err != nil {
				return fmt.Errorf("append status history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// DeleteItem removes the row; its claims go with it through the cascade.
// A checked-out row cannot be deleted: its units would be lost.
func (r *Repo) DeleteItem(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.InventoryItem
		if err := lockItem(tx, id, &it); err != nil {
			return err
		}
		if it.Status == models.StatusInUse {
			return ErrItemCheckedOut
		}
		// sqlite 未必开启外键，这里显式删除
		if err := tx.Where("item_id = ?", id).Delete(&models.InventoryClaim{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.InventoryItem{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

// supplies 的状态由库存决定：0 为 out_of_stock，否则 in_stock
func suppliesStatusMatches(category, status string, qty int) bool {
	if category != models.CategorySupplies {
		return true
	}
	return status == models.DefaultStatus(category, qty)
}
