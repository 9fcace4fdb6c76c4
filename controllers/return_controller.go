package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/events"
	"school_inventory_tool/models"
)

type ReturnController struct{ *Srv }

func NewReturnController(s *Srv) *ReturnController { return &ReturnController{Srv: s} }

// POST /api/inventory/returns/:id/request（:id 为 in_use 行）
func (rc *ReturnController) RequestReturn(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	it, err := rc.Repo.RequestReturn(c.Request.Context(), itemID, cl.ID)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	rc.Metrics.Return(c.Request.Context(), "requested")
	rc.publish(c.Request.Context(), events.Event{
		Type:     events.ReturnRequested,
		ItemID:   it.ID,
		ActorID:  cl.ID,
		Quantity: it.Quantity,
	})
	rc.invalidate(c.Request.Context(), it.CreatedBy)
	c.JSON(http.StatusOK, it)
}

// POST /api/inventory/returns/:id/approve（管理员/经理）
func (rc *ReturnController) ApproveReturn(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := rc.Repo.ApproveReturn(c.Request.Context(), itemID, cl.ID)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	rc.Log.Info("return approved",
		zap.Uint("item_id", itemID),
		zap.String("mode", out.Mode),
		zap.Uint("available_id", out.Available.ID),
		zap.String("by", cl.ID))
	rc.Metrics.Return(c.Request.Context(), out.Mode)
	rc.publish(c.Request.Context(), events.Event{
		Type:     events.ReturnApproved,
		ItemID:   out.Available.ID,
		ActorID:  cl.ID,
		Quantity: out.Available.Quantity,
		Detail:   out.Mode,
	})
	rc.invalidate(c.Request.Context(), out.Available.CreatedBy, cl.ID)
	c.JSON(http.StatusOK, out)
}

// GET /api/inventory/returns/pending
func (rc *ReturnController) ListPending(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	scope := cl.ID
	if cl.Role == models.RoleAdmin {
		scope = ""
	}
	items, err := rc.Repo.ListPendingReturns(c.Request.Context(), scope)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// GET /api/inventory/mine 当前用户借出中的设备
func (rc *ReturnController) Mine(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	items, err := rc.Repo.ListMyEquipment(c.Request.Context(), cl.ID)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}
