package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/db"
	"school_inventory_tool/models"
)

type InventoryController struct{ *Srv }

func NewInventoryController(s *Srv) *InventoryController { return &InventoryController{Srv: s} }

// POST /api/inventory（管理员/经理）
func (ic *InventoryController) CreateItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var in struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category" binding:"required"`
		Status      string `json:"status"`
		Quantity    *int   `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	it, err := ic.Repo.CreateItem(c.Request.Context(), db.CreateItemInput{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Status:      in.Status,
		Quantity:    *in.Quantity,
		CreatedBy:   cl.ID,
	})
	if err != nil {
		ic.writeError(c, err)
		return
	}
	ic.invalidate(c.Request.Context(), cl.ID)
	c.JSON(http.StatusCreated, it)
}

// GET /api/inventory?q=&category=&status=&page=&size=
func (ic *InventoryController) ListItems(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	res, err := ic.Repo.ListItems(c.Request.Context(), cl, db.ItemFilter{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		Size:     queryInt(c, "size", 50),
	})
	if err != nil {
		ic.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/inventory/:id
func (ic *InventoryController) GetItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	it, err := ic.Repo.GetItem(c.Request.Context(), id)
	if err != nil {
		ic.writeError(c, err)
		return
	}
	// 借用人总能看到自己手上的设备
	if it.ClaimedBy == nil || *it.ClaimedBy != cl.ID {
		visible, err := ic.Repo.CanSee(c.Request.Context(), cl, id)
		if err != nil {
			ic.writeError(c, err)
			return
		}
		if !visible {
			ic.writeError(c, db.ErrItemNotFound)
			return
		}
	}
	c.JSON(http.StatusOK, it)
}

// ownItem 经理只能改自己名下的物品；管理员不限
func (ic *InventoryController) ownItem(c *gin.Context, cl models.Caller, id uint) (*models.InventoryItem, bool) {
	it, err := ic.Repo.GetItem(c.Request.Context(), id)
	if err != nil {
		ic.writeError(c, err)
		return nil, false
	}
	if cl.Role != models.RoleAdmin && it.CreatedBy != cl.ID {
		c.JSON(http.StatusForbidden, app.H{"error": "item belongs to another manager"})
		return nil, false
	}
	return it, true
}

// PUT /api/inventory/:id
func (ic *InventoryController) UpdateItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Quantity    *int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	before, ok := ic.ownItem(c, cl, id)
	if !ok {
		return
	}

	it, err := ic.Repo.UpdateItem(c.Request.Context(), id, db.UpdateItemInput{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Quantity:    in.Quantity,
	}, cl.ID)
	if err != nil {
		ic.writeError(c, err)
		return
	}
	if before.Status != it.Status {
		ic.Log.Info("item status changed",
			zap.Uint("item_id", id), zap.String("from", before.Status), zap.String("to", it.Status), zap.String("by", cl.ID))
	}
	ic.invalidate(c.Request.Context(), it.CreatedBy)
	c.JSON(http.StatusOK, it)
}

// DELETE /api/inventory/:id
func (ic *InventoryController) DeleteItem(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	it, ok := ic.ownItem(c, cl, id)
	if !ok {
		return
	}
	if err := ic.Repo.DeleteItem(c.Request.Context(), id); err != nil {
		ic.writeError(c, err)
		return
	}
	ic.invalidate(c.Request.Context(), it.CreatedBy)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/inventory/:id/history
func (ic *InventoryController) History(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	visible, err := ic.Repo.CanSee(c.Request.Context(), cl, id)
	if err != nil {
		ic.writeError(c, err)
		return
	}
	if !visible {
		ic.writeError(c, db.ErrItemNotFound)
		return
	}
	rows, err := ic.Repo.ItemHistory(c.Request.Context(), id, queryInt(c, "limit", 100))
	if err != nil {
		ic.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"history": rows})
}
