package app

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"school_inventory_tool/config"
	"school_inventory_tool/db"
	"school_inventory_tool/models"
	"school_inventory_tool/session"
)

const AppSessionCookie = "app_session"

// context keys
const (
	KeyUserID     = "userID"
	KeyUsername   = "username"
	KeyRole       = "role"
	KeyDepartment = "department"
	KeyCourse     = "course"
)

// SetCaller puts the acting identity on the gin context.
func SetCaller(c *gin.Context, caller models.Caller) {
	c.Set(KeyUserID, caller.ID)
	c.Set(KeyRole, caller.Role)
	c.Set(KeyDepartment, caller.Department)
	c.Set(KeyCourse, caller.Course)
}

// CallerFrom reads what AuthRequired stored. ok is false when no user is set.
func CallerFrom(c *gin.Context) (models.Caller, bool) {
	uid := c.GetString(KeyUserID)
	if uid == "" {
		return models.Caller{}, false
	}
	return models.Caller{
		ID:         uid,
		Role:       c.GetString(KeyRole),
		Department: c.GetString(KeyDepartment),
		Course:     c.GetString(KeyCourse),
	}, true
}

func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo, admin config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// 确认用户仍存在；角色以数据库为准（只查一次）
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		role := u.Role
		if admin.IsAdminEmail(u.Username) {
			role = models.RoleAdmin
		}
		SetCaller(c, models.Caller{ID: u.ID, Role: role, Department: u.Department, Course: u.Course})
		c.Set(KeyUsername, u.Username)

		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !slices.Contains(roles, caller.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc { return RequireRoles(models.RoleAdmin) }

func ManagerOnly() gin.HandlerFunc { return RequireRoles(models.RoleManager, models.RoleAdmin) }
