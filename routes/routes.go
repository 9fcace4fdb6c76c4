package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"school_inventory_tool/app"
	"school_inventory_tool/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) *controllers.Srv {
	s := controllers.GetSrv(a)

	authMW := app.AuthRequired(s.AppSess, s.Repo, a.Config.Admin)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute, a.Logger)
	Mount(r, s, authMW, seenMW)
	return s
}

// Mount 注册全部路由；authMW 负责写入调用者身份
func Mount(r *gin.Engine, s *controllers.Srv, authMW gin.HandlerFunc, extra ...gin.HandlerFunc) {
	uc := controllers.GetUserController(s)
	inviteCtl := controllers.GetInviteController(s)
	inv := controllers.NewInventoryController(s)
	claims := controllers.NewClaimController(s)
	returns := controllers.NewReturnController(s)
	reqs := controllers.NewRequestController(s)
	stats := controllers.NewAnalyticsController(s)

	adminMW := app.AdminOnly()
	managerMW := app.ManagerOnly()
	loginLimit := app.RateLimit(app.NewIPLimiter(6*time.Second, 10))
	authed := append([]gin.HandlerFunc{authMW}, extra...)
	with := func(h ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, authed...), h...)
	}

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// WebAuthn（公开+受保护）
	// ------------------------------
	wa := r.Group("/webauthn", loginLimit)
	{
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)

		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}
	waAuth := r.Group("/webauthn", authed...)
	{
		waAuth.GET("/whoami", s.WhoAmI)
		waAuth.POST("/logout", s.Logout)
	}

	// 已登录用户添加新凭据（绑定手机等）
	creds := r.Group("/api/credentials", authed...)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// 邀请 / 用户管理（仅管理员）
	// ------------------------------
	admin := r.Group("/admin", with(adminMW)...)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
	}
	users := r.Group("/api/users", with(adminMW)...)
	{
		users.GET("", uc.ListUsers) // ?q=&role=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.PUT("/:id/role", uc.SetRole)
		users.DELETE("/:id", uc.DeleteUser)
	}

	// ------------------------------
	// 库存 / 申领 / 归还
	// ------------------------------
	items := r.Group("/api/inventory", authed...)
	{
		items.GET("", inv.ListItems)
		items.GET("/mine", returns.Mine)
		items.GET("/claims", claims.ListClaims)
		items.GET("/:id", inv.GetItem)
		items.GET("/:id/history", inv.History)
		items.POST("/:id/claims", claims.CreateClaim)
		items.POST("/returns/:id/request", returns.RequestReturn)

		mgr := items.Group("", managerMW)
		mgr.POST("", inv.CreateItem)
		mgr.PUT("/:id", inv.UpdateItem)
		mgr.DELETE("/:id", inv.DeleteItem)
		mgr.POST("/claims/:claimId/decision", claims.Decide)
		mgr.POST("/returns/:id/approve", returns.ApproveReturn)
		mgr.GET("/returns/pending", returns.ListPending)
	}

	// ------------------------------
	// 需求看板 + 投票
	// ------------------------------
	board := r.Group("/api/requests", authed...)
	{
		board.GET("", reqs.List)
		board.POST("", reqs.Create)
		board.POST("/:id/vote", reqs.Vote)
		board.DELETE("/:id/vote", reqs.Unvote)
		board.PUT("/:id/status", managerMW, reqs.SetStatus)
	}

	analytics := r.Group("/api/analytics", with(managerMW)...)
	{
		analytics.GET("/summary", stats.Summary)
		analytics.GET("/claims-per-day", stats.ClaimsPerDay)
	}
}
