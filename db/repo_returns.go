package db

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school_inventory_tool/models"
)

// RequestReturn marks an in-use equipment row held by userID as pending return.
func (r *Repo) RequestReturn(ctx context.Context, itemID uint, userID string) (*models.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.return.request", trace.WithAttributes(
		attribute.Int64("item.id", int64(itemID)),
	))
	defer span.End()

	var it models.InventoryItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockItem(tx, itemID, &it); err != nil {
			return err
		}
		if it.Category != models.CategoryEquipment || it.Status != models.StatusInUse {
			return ErrNotInUse
		}
		if it.ClaimedBy == nil || *it.ClaimedBy != userID {
			return ErrNotClaimant
		}
		if it.ReturnStatus != nil && *it.ReturnStatus == models.ReturnPending {
			return ErrReturnAlreadyPending
		}

		pending := models.ReturnPending
		if err := tx.Model(&models.InventoryItem{}).
			Where("id = ?", it.ID).
			Updates(map[string]any{"return_status": pending, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		it.ReturnStatus = &pending
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &it, nil
}

// ReturnOutcome says where the returned units went.
type ReturnOutcome struct {
	Mode      string               `json:"mode"` // merged | recreated | converted
	Available models.InventoryItem `json:"available"`
	RemovedID uint                 `json:"removedId,omitempty"`
}

const (
	ReturnMerged    = "merged"
	ReturnRecreated = "recreated"
	ReturnConverted = "converted"
)

// ApproveReturn puts a pending-return row back into stock:
//   - parent exists and is available: units merge into it, the in-use row is deleted
//   - parent gone or not available: a fresh available row owned by managerID replaces it
//   - no parent: the row itself becomes available
func (r *Repo) ApproveReturn(ctx context.Context, itemID uint, managerID string) (*ReturnOutcome, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.return.approve", trace.WithAttributes(
		attribute.Int64("item.id", int64(itemID)),
	))
	defer span.End()

	var out ReturnOutcome
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.InventoryItem
		if err := lockItem(tx, itemID, &it); err != nil {
			return err
		}
		if it.Category != models.CategoryEquipment || it.Status != models.StatusInUse {
			return ErrNotInUse
		}
		if it.ReturnStatus == nil || *it.ReturnStatus != models.ReturnPending {
			return ErrReturnNotPending
		}
		now := time.Now().UTC()

		// 无父行：原地转回可用
		if it.ParentItemID == nil {
			if err := tx.Model(&models.InventoryItem{}).
				Where("id = ?", it.ID).
				Updates(map[string]any{
					"status":        models.StatusAvailable,
					"return_status": nil,
					"claimed_by":    nil,
					"updated_at":    now,
				}).Error; err != nil {
				return err
			}
			it.Status = models.StatusAvailable
			it.ReturnStatus = nil
			it.ClaimedBy = nil
			it.UpdatedAt = now
			out = ReturnOutcome{Mode: ReturnConverted, Available: it}
			return nil
		}

		var parent models.InventoryItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&parent, "id = ?", *it.ParentItemID).Error
		switch {
		case err == nil && parent.Status == models.StatusAvailable:
			parent.Quantity += it.Quantity
			parent.UpdatedAt = now
			if err := tx.Model(&models.InventoryItem{}).
				Where("id = ?", parent.ID).
				Updates(map[string]any{"quantity": parent.Quantity, "updated_at": now}).Error; err != nil {
				return err
			}
			out = ReturnOutcome{Mode: ReturnMerged, Available: parent}
		case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
			fresh := models.InventoryItem{
				Name:        it.Name,
				Description: it.Description,
				Category:    models.CategoryEquipment,
				Status:      models.StatusAvailable,
				Quantity:    it.Quantity,
				CreatedBy:   managerID,
			}
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
			out = ReturnOutcome{Mode: ReturnRecreated, Available: fresh}
		default:
			return err
		}

		if err := tx.Delete(&models.InventoryItem{}, it.ID).Error; err != nil {
			return err
		}
		out.RemovedID = it.ID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &out, nil
}

func lockItem(tx *gorm.DB, id uint, it *models.InventoryItem) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	return nil
}

// ListPendingReturns lists rows awaiting return approval. A non-empty
// managerID narrows to rows created under that manager.
func (r *Repo) ListPendingReturns(ctx context.Context, managerID string) ([]models.InventoryItem, error) {
	q := r.DB.WithContext(ctx).
		Where("return_status = ? AND status = ?", models.ReturnPending, models.StatusInUse)
	if managerID != "" {
		q = q.Where("created_by = ?", managerID)
	}
	var items []models.InventoryItem
	if err := q.Order("updated_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListMyEquipment 当前用户手上的设备
func (r *Repo) ListMyEquipment(ctx context.Context, userID string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.WithContext(ctx).
		Where("claimed_by = ? AND status = ?", userID, models.StatusInUse).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
