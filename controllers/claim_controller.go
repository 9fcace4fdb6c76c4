package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/db"
	"school_inventory_tool/events"
	"school_inventory_tool/models"
)

type ClaimController struct{ *Srv }

func NewClaimController(s *Srv) *ClaimController { return &ClaimController{Srv: s} }

// POST /api/inventory/:id/claims  {quantity, note}
func (cc *ClaimController) CreateClaim(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Quantity int    `json:"quantity"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}

	visible, err := cc.Repo.CanSee(c.Request.Context(), cl, itemID)
	if err != nil {
		cc.writeError(c, err)
		return
	}
	if !visible {
		cc.writeError(c, db.ErrItemNotFound)
		return
	}

	claim, err := cc.Repo.CreateClaim(c.Request.Context(), db.CreateClaimInput{
		ItemID:   itemID,
		UserID:   cl.ID,
		Quantity: in.Quantity,
		Note:     in.Note,
	})
	if err != nil {
		cc.writeError(c, err)
		return
	}
	cc.Metrics.Claim(c.Request.Context(), models.ClaimPending, "", claim.Quantity)
	cc.publish(c.Request.Context(), events.Event{
		Type:     events.ClaimCreated,
		ItemID:   claim.ItemID,
		ClaimID:  claim.ID,
		ActorID:  cl.ID,
		Quantity: claim.Quantity,
	})
	c.JSON(http.StatusCreated, claim)
}

// GET /api/inventory/claims?status=&itemId=&page=&size=
// 普通用户只看自己的申领；经理看自己物品上的申领；管理员看全部
func (cc *ClaimController) ListClaims(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	f := db.ClaimFilter{
		Status: c.Query("status"),
		ItemID: uint(queryInt(c, "itemId", 0)),
		Page:   queryInt(c, "page", 1),
		Size:   queryInt(c, "size", 50),
	}
	switch cl.Role {
	case models.RoleAdmin:
		f.RequestedBy = c.Query("requestedBy")
	case models.RoleManager:
		if c.Query("mine") == "true" {
			f.RequestedBy = cl.ID
		} else {
			f.ManagerID = cl.ID
		}
	default:
		f.RequestedBy = cl.ID
	}
	res, err := cc.Repo.ListClaims(c.Request.Context(), f)
	if err != nil {
		cc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/inventory/claims/:claimId/decision  {approve: bool}
func (cc *ClaimController) Decide(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	claimID, ok := paramID(c, "claimId")
	if !ok {
		return
	}
	var in struct {
		Approve *bool `json:"approve" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "approve is required"})
		return
	}

	res, err := cc.Repo.DecideClaim(c.Request.Context(), claimID, cl.ID, *in.Approve)
	if err != nil {
		cc.writeError(c, err)
		return
	}

	typ := events.ClaimRejected
	if *in.Approve {
		typ = events.ClaimApproved
	}
	cc.Log.Info("claim decided",
		zap.Uint("claim_id", res.Claim.ID),
		zap.Uint("item_id", res.Item.ID),
		zap.String("status", res.Claim.Status),
		zap.String("by", cl.ID))
	cc.Metrics.Claim(c.Request.Context(), res.Claim.Status, res.Item.Category, res.Claim.Quantity)
	cc.publish(c.Request.Context(), events.Event{
		Type:     typ,
		ItemID:   res.Item.ID,
		ClaimID:  res.Claim.ID,
		ActorID:  cl.ID,
		Quantity: res.Claim.Quantity,
	})
	cc.invalidate(c.Request.Context(), res.Item.CreatedBy)
	c.JSON(http.StatusOK, res)
}
