package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/models"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&role=teacher&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	res, err := uc.Repo.ListUsers(c.Request.Context(),
		c.Query("q"), c.Query("role"),
		queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		uc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		uc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// PUT /api/users/:id/role
func (uc *UserController) SetRole(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if cl, _ := app.CallerFrom(c); cl.ID == id && in.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot demote yourself"})
		return
	}
	if err := uc.Repo.SetUserRole(c.Request.Context(), id, in.Role); err != nil {
		uc.writeError(c, err)
		return
	}
	// 角色变化后旧会话作废
	if uc.AppSess != nil {
		_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	}
	uc.Log.Info("user role changed", zap.String("user_id", id), zap.String("role", in.Role))
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	// 不允许删除自己，避免锁死
	if cl, _ := app.CallerFrom(c); cl.ID == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}

	target, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		uc.writeError(c, err)
		return
	}
	if uc.Cfg.Admin.IsAdminEmail(target.Username) {
		c.JSON(http.StatusForbidden, app.H{"error": "cannot delete an admin"})
		return
	}

	// 真正删除（会连带删 credentials）
	if err := uc.Repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		uc.writeError(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	if uc.AppSess != nil {
		_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
