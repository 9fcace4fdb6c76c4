// models/inventory.go
package models

import "time"

const (
	ItemTable          = "inventory_items"
	ClaimTable         = "inventory_claims"
	StatusHistoryTable = "inventory_item_status_history"
)

// Categories
const (
	CategorySupplies  = "supplies"
	CategoryEquipment = "equipment"
)

// Item statuses. Supplies use in_stock/out_of_stock, equipment the rest.
const (
	StatusInStock    = "in_stock"
	StatusOutOfStock = "out_of_stock"
	StatusAvailable  = "available"
	StatusInUse      = "in_use"
	StatusForRepair  = "for_repair"
	StatusDisposed   = "disposed"
)

const ReturnPending = "pending"

// Claim statuses
const (
	ClaimPending  = "pending"
	ClaimApproved = "approved"
	ClaimRejected = "rejected"
)

// InventoryItem is one stock row. An equipment row with status in_use is a
// quantity split off a parent row by an approved claim and held by ClaimedBy.
type InventoryItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:20;not null;index" json:"category"`
	Status      string `gorm:"size:20;not null;index" json:"status"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	CreatedBy   string `gorm:"type:uuid;index" json:"createdBy"` // 所属管理员

	// equipment only
	ParentItemID *uint   `gorm:"index" json:"parentItemId,omitempty"`
	ClaimedBy    *string `gorm:"type:uuid;index" json:"claimedBy,omitempty"`
	ClaimID      *uint   `json:"claimId,omitempty"`
	ReturnStatus *string `gorm:"size:20;index" json:"returnStatus,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InventoryClaim is a request to take Quantity units of an item. item_id
// cascades on delete, so parent rows are kept at quantity 0 instead of removed.
type InventoryClaim struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ItemID      uint           `gorm:"not null;index" json:"itemId"`
	Item        *InventoryItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	RequestedBy string         `gorm:"type:uuid;not null;index" json:"requestedBy"`
	Quantity    int            `gorm:"not null" json:"quantity"`
	Note        string         `gorm:"size:500" json:"note,omitempty"`
	Status      string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ApprovedBy  *string        `gorm:"type:uuid" json:"approvedBy,omitempty"`
	DecidedAt   *time.Time     `json:"decidedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// StatusHistory is append-only.
type StatusHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;index" json:"itemId"`
	OldStatus string    `gorm:"size:20" json:"oldStatus"`
	NewStatus string    `gorm:"size:20;not null" json:"newStatus"`
	ChangedBy string    `gorm:"type:uuid" json:"changedBy"`
	ChangedAt time.Time `gorm:"not null;index" json:"changedAt"`
}

func (InventoryItem) TableName() string  { return ItemTable }
func (InventoryClaim) TableName() string { return ClaimTable }
func (StatusHistory) TableName() string  { return StatusHistoryTable }

func ValidCategory(c string) bool {
	return c == CategorySupplies || c == CategoryEquipment
}

// ValidStatusFor reports whether status belongs to the category's enum.
func ValidStatusFor(category, status string) bool {
	switch category {
	case CategorySupplies:
		return status == StatusInStock || status == StatusOutOfStock
	case CategoryEquipment:
		switch status {
		case StatusAvailable, StatusInUse, StatusForRepair, StatusDisposed:
			return true
		}
	}
	return false
}

// DefaultStatus is used when an item is created without an explicit status.
func DefaultStatus(category string, quantity int) string {
	if category == CategorySupplies {
		if quantity <= 0 {
			return StatusOutOfStock
		}
		return StatusInStock
	}
	return StatusAvailable
}
