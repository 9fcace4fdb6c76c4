// controllers/srv.go
package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/cache"
	"school_inventory_tool/config"
	"school_inventory_tool/db"
	"school_inventory_tool/events"
	"school_inventory_tool/models"
	"school_inventory_tool/observability"
	"school_inventory_tool/session"
)

// SummaryCache is the analytics cache the controllers use. nil disables caching.
type SummaryCache interface {
	Get(ctx context.Context, scope string) (*db.Summary, error)
	Set(ctx context.Context, scope string, s *db.Summary) error
	Invalidate(ctx context.Context, scopes ...string) error
}

type Srv struct {
	WA      *webauthn.WebAuthn
	Repo    *db.Repo
	Sess    *session.Store
	AppSess *session.AppSessionStore
	Cfg     *config.Config
	Log     *zap.Logger
	Events  events.Publisher
	Cache   SummaryCache
	Metrics *observability.Metrics
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:      a.WA,
		Repo:    db.NewRepo(a.DB),
		Sess:    session.NewStore(a.RDB, a.Config.Session.TTL),
		AppSess: a.AppSessions(),
		Cfg:     a.Config,
		Log:     a.Logger,
		Events:  a.Events,
		Cache:   cache.NewSummaryCache(a.RDB, a.Config.Analytics.CacheTTL),
		Metrics: observability.NewMetrics(nil),
	}
}

// --- helpers ---

func (s *Srv) secureCookie() bool { return strings.HasPrefix(s.Cfg.HTTP.WebOrigin, "https://") }

// 统一设置业务会话 Cookie；maxAge < 0 表示删除
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	ma := int(maxAge / time.Second)
	if maxAge < 0 {
		ma = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookie(),
		MaxAge:   ma,
	})
}

// 登录成功：创建会话 + 触发登录快照
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, u *models.User, ip, ua string) error {
	if err := s.Repo.TouchUserLogin(ctx, u.ID, ip, ua); err != nil {
		s.Log.Warn("touch user login", zap.String("user_id", u.ID), zap.Error(err)) // 不阻塞
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, u.ID, u.Role); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// caller 取出 AuthRequired 写入的身份；缺失时已写 401
func caller(c *gin.Context) (models.Caller, bool) {
	cl, ok := app.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
	}
	return cl, ok
}

func paramID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(n), true
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// writeError maps repository errors to HTTP statuses.
func (s *Srv) writeError(c *gin.Context, err error) {
	switch {
	case db.IsNotFound(err):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case db.IsConflict(err):
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case db.IsValidation(err):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	case db.IsForbidden(err):
		c.JSON(http.StatusForbidden, app.H{"error": err.Error()})
	default:
		s.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

// publish runs after commit; a failed publish is logged and never undoes the change.
func (s *Srv) publish(ctx context.Context, e events.Event) {
	if s.Events == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		s.Log.Warn("event publish failed", zap.String("type", e.Type), zap.Uint("item_id", e.ItemID), zap.Error(err))
	}
}

// invalidate drops cached analytics for the global view and the owning manager.
func (s *Srv) invalidate(ctx context.Context, managerIDs ...string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, managerIDs...); err != nil {
		s.Log.Warn("analytics cache invalidate", zap.Error(err))
	}
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Username }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnIcon() string                       { return "" }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func fromWaCred(userID string, cred *webauthn.Credential) *models.Credential {
	return &models.Credential{
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func (s *Srv) waUserFor(ctx context.Context, u *models.User) *waUser {
	cs, err := s.Repo.LoadUserCredentials(ctx, u.ID)
	if err != nil {
		s.Log.Warn("load credentials", zap.String("user_id", u.ID), zap.Error(err))
	}
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.waUserFor(ctx, u), nil
}

func (s *Srv) loadWAUserByUsername(ctx context.Context, username string) (*waUser, error) {
	u, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.waUserFor(ctx, u), nil
}
