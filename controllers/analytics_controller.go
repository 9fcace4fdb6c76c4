package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/cache"
	"school_inventory_tool/models"
)

type AnalyticsController struct{ *Srv }

func NewAnalyticsController(s *Srv) *AnalyticsController { return &AnalyticsController{Srv: s} }

// GET /api/analytics/summary
// 经理只统计自己名下；管理员全局
func (ac *AnalyticsController) Summary(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	managerID := cl.ID
	scope := cl.ID
	if cl.Role == models.RoleAdmin {
		managerID, scope = "", cache.GlobalScope
	}
	ctx := c.Request.Context()

	if ac.Cache != nil {
		if s, err := ac.Cache.Get(ctx, scope); err != nil {
			ac.Log.Warn("analytics cache get", zap.Error(err))
		} else if s != nil {
			c.Header("X-Cache", "hit")
			c.JSON(http.StatusOK, s)
			return
		}
	}

	s, err := ac.Repo.Summary(ctx, managerID)
	if err != nil {
		ac.writeError(c, err)
		return
	}
	if ac.Cache != nil {
		if err := ac.Cache.Set(ctx, scope, s); err != nil {
			ac.Log.Warn("analytics cache set", zap.Error(err))
		}
	}
	c.Header("X-Cache", "miss")
	c.JSON(http.StatusOK, s)
}

// GET /api/analytics/claims-per-day?days=30
func (ac *AnalyticsController) ClaimsPerDay(c *gin.Context) {
	days, err := ac.Repo.ClaimsPerDay(c.Request.Context(), queryInt(c, "days", 30), time.Now())
	if err != nil {
		ac.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"days": days})
}
