package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"school_inventory_tool/app"
	"school_inventory_tool/db"
)

type RequestController struct{ *Srv }

func NewRequestController(s *Srv) *RequestController { return &RequestController{Srv: s} }

// POST /api/requests
func (rc *RequestController) Create(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var in struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	req, err := rc.Repo.CreateRequest(c.Request.Context(), db.CreateRequestInput{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		RequestedBy: cl.ID,
	})
	if err != nil {
		rc.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GET /api/requests?status=open&sort=votes|recent
func (rc *RequestController) List(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	reqs, err := rc.Repo.ListRequests(c.Request.Context(), c.Query("status"), c.Query("sort"), queryInt(c, "limit", 50))
	if err != nil {
		rc.writeError(c, err)
		return
	}
	ids := make([]uint, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	voted, err := rc.Repo.VotedBy(c.Request.Context(), cl.ID, ids)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"requests": reqs, "voted": voted})
}

// POST /api/requests/:id/vote
func (rc *RequestController) Vote(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, err := rc.Repo.Vote(c.Request.Context(), id, cl.ID)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DELETE /api/requests/:id/vote
func (rc *RequestController) Unvote(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, err := rc.Repo.Unvote(c.Request.Context(), id, cl.ID)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// PUT /api/requests/:id/status（管理员/经理）
func (rc *RequestController) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	req, err := rc.Repo.SetRequestStatus(c.Request.Context(), id, in.Status)
	if err != nil {
		rc.writeError(c, err)
		return
	}
	rc.invalidate(c.Request.Context())
	c.JSON(http.StatusOK, req)
}
