package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school_inventory_tool/models"
)

type CreateClaimInput struct {
	ItemID   uint
	UserID   string
	Quantity int
	Note     string
}

// CreateClaim records a pending claim after checking availability. Nothing is
// reserved here: concurrent claims may both be accepted as pending, and
// DecideClaim re-validates under lock.
func (r *Repo) CreateClaim(ctx context.Context, in CreateClaimInput) (*models.InventoryClaim, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.claim.create", trace.WithAttributes(
		attribute.Int64("item.id", int64(in.ItemID)),
		attribute.Int("claim.quantity", in.Quantity),
	))
	defer span.End()

	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var it models.InventoryItem
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", in.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if err := checkClaimable(&it, in.Quantity); err != nil {
		return nil, err
	}

	cl := &models.InventoryClaim{
		ItemID:      it.ID,
		RequestedBy: in.UserID,
		Quantity:    in.Quantity,
		Note:        in.Note,
		Status:      models.ClaimPending,
	}
	if err := r.DB.WithContext(ctx).Create(cl).Error; err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}
	return cl, nil
}

func checkClaimable(it *models.InventoryItem, qty int) error {
	switch it.Category {
	case models.CategoryEquipment:
		if it.Status != models.StatusAvailable {
			return ErrEquipmentNotAvailable
		}
		if it.Quantity < qty {
			return ErrInsufficientUnits
		}
	case models.CategorySupplies:
		if it.Status == models.StatusOutOfStock {
			return ErrOutOfStock
		}
		if it.Quantity < qty {
			return ErrInsufficientStock
		}
	default:
		return ErrInvalidCategory
	}
	return nil
}

// ClaimDecision is the outcome of DecideClaim. InUse is set when an equipment
// claim was approved and split into a new in_use row.
type ClaimDecision struct {
	Claim models.InventoryClaim `json:"claim"`
	Item  models.InventoryItem  `json:"item"`
	InUse *models.InventoryItem `json:"inUse,omitempty"`
}

// DecideClaim approves or rejects a pending claim in one transaction.
// 锁顺序：先 claim 后 item，同一物品上的并发审批因此串行；后到者读到更新后的库存再校验。
// Any error rolls back, leaving the claim pending and the item untouched.
func (r *Repo) DecideClaim(ctx context.Context, claimID uint, managerID string, approve bool) (*ClaimDecision, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.claim.decide", trace.WithAttributes(
		attribute.Int64("claim.id", int64(claimID)),
		attribute.Bool("claim.approve", approve),
	))
	defer span.End()

	var out ClaimDecision
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住 claim
		var cl models.InventoryClaim
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cl, "id = ?", claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClaimNotFound
			}
			return err
		}
		if cl.Status != models.ClaimPending {
			return ErrAlreadyDecided
		}

		// 2) 锁住物品
		var it models.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", cl.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		now := time.Now().UTC()
		if approve {
			switch it.Category {
			case models.CategoryEquipment:
				inUse, err := approveEquipment(tx, &it, &cl, now)
				if err != nil {
					return err
				}
				out.InUse = inUse
			case models.CategorySupplies:
				if err := approveSupplies(tx, &it, &cl, now); err != nil {
					return err
				}
			default:
				return ErrInvalidCategory
			}
		}

		// 3) 落定 claim
		status := models.ClaimRejected
		if approve {
			status = models.ClaimApproved
		}
		if err := tx.Model(&models.InventoryClaim{}).
			Where("id = ?", cl.ID).
			Updates(map[string]any{
				"status":      status,
				"approved_by": managerID,
				"decided_at":  now,
			}).Error; err != nil {
			return err
		}
		cl.Status = status
		cl.ApprovedBy = &managerID
		cl.DecidedAt = &now

		out.Claim = cl
		out.Item = it
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &out, nil
}

// approveEquipment moves the claimed units off the parent row into a new
// in_use row. The parent is never deleted, even at quantity 0: deleting it
// would cascade to the claim.
func approveEquipment(tx *gorm.DB, it *models.InventoryItem, cl *models.InventoryClaim, now time.Time) (*models.InventoryItem, error) {
	if it.Status != models.StatusAvailable {
		return nil, ErrEquipmentNotAvailable
	}
	if cl.Quantity > it.Quantity {
		return nil, ErrInsufficientUnits
	}
	remaining := max(it.Quantity-cl.Quantity, 0)
	if err := tx.Model(&models.InventoryItem{}).
		Where("id = ?", it.ID).
		Updates(map[string]any{"quantity": remaining, "updated_at": now}).Error; err != nil {
		return nil, err
	}
	it.Quantity = remaining
	it.UpdatedAt = now

	parentID, claimID, holder := it.ID, cl.ID, cl.RequestedBy
	inUse := &models.InventoryItem{
		Name:         it.Name,
		Description:  it.Description,
		Category:     models.CategoryEquipment,
		Status:       models.StatusInUse,
		Quantity:     cl.Quantity,
		CreatedBy:    it.CreatedBy,
		ParentItemID: &parentID,
		ClaimedBy:    &holder,
		ClaimID:      &claimID,
	}
	if err := tx.Create(inUse).Error; err != nil {
		return nil, fmt.Errorf("insert in-use row: %w", err)
	}
	return inUse, nil
}

func approveSupplies(tx *gorm.DB, it *models.InventoryItem, cl *models.InventoryClaim, now time.Time) error {
	if it.Status == models.StatusOutOfStock {
		return ErrOutOfStock
	}
	if it.Quantity < cl.Quantity {
		return ErrInsufficientStock
	}
	remaining := it.Quantity - cl.Quantity
	status := it.Status
	if remaining == 0 {
		status = models.StatusOutOfStock
	}
	if err := tx.Model(&models.InventoryItem{}).
		Where("id = ?", it.ID).
		Updates(map[string]any{"quantity": remaining, "status": status, "updated_at": now}).Error; err != nil {
		return err
	}
	it.Quantity = remaining
	it.Status = status
	it.UpdatedAt = now
	return nil
}

func (r *Repo) GetClaim(ctx context.Context, id uint) (*models.InventoryClaim, error) {
	var cl models.InventoryClaim
	if err := r.DB.WithContext(ctx).Preload("Item").First(&cl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &cl, nil
}

type ClaimFilter struct {
	Status      string
	ItemID      uint
	RequestedBy string
	ManagerID   string // 只看该管理员名下物品的申领
	Page        int
	Size        int
}

type PagedClaims struct {
	Total  int64                   `json:"total"`
	Claims []models.InventoryClaim `json:"claims"`
}

func (r *Repo) ListClaims(ctx context.Context, f ClaimFilter) (*PagedClaims, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Size <= 0 || f.Size > 200 {
		f.Size = 50
	}

	q := r.DB.WithContext(ctx).Model(&models.InventoryClaim{})
	if f.Status != "" {
		q = q.Where(models.ClaimTable+".status = ?", f.Status)
	}
	if f.ItemID != 0 {
		q = q.Where(models.ClaimTable+".item_id = ?", f.ItemID)
	}
	if f.RequestedBy != "" {
		q = q.Where(models.ClaimTable+".requested_by = ?", f.RequestedBy)
	}
	if f.ManagerID != "" {
		q = q.Joins("JOIN "+models.ItemTable+" i ON i.id = "+models.ClaimTable+".item_id").
			Where("i.created_by = ?", f.ManagerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var claims []models.InventoryClaim
	if err := q.Preload("Item").
		Order(models.ClaimTable + ".created_at DESC").
		Offset((f.Page - 1) * f.Size).
		Limit(f.Size).
		Find(&claims).Error; err != nil {
		return nil, err
	}
	return &PagedClaims{Total: total, Claims: claims}, nil
}
