package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"school_inventory_tool/config"
	"school_inventory_tool/db"
	"school_inventory_tool/events"
	"school_inventory_tool/session"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Config *config.Config
	Logger *zap.Logger
	Events events.Publisher

	appSess *session.AppSessionStore
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

// New wires Postgres, Redis, the WebAuthn relying party, the event publisher
// and the gin engine with global middleware. Routes are mounted by the caller.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	// --- DB: Postgres ---
	dbConn, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(dbConn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthn.DisplayName,
		RPID:          cfg.WebAuthn.RPID,
		RPOrigins:     cfg.WebAuthn.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	// --- Gin ---
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), Tracing(cfg.Telemetry.ServiceName), RequestLogger(log))
	useCORS(r, cfg.HTTP.WebOrigin, cfg.WebAuthn.RPOrigins)

	return &App{
		Router:  r,
		DB:      dbConn,
		RDB:     rdb,
		WA:      wa,
		Config:  cfg,
		Logger:  log,
		Events:  events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log),
		appSess: session.NewAppSessionStore(rdb, cfg.Session.AppTTL),
	}, nil
}

func (a *App) Close() {
	if err := a.Events.Close(); err != nil {
		a.Logger.Warn("close event publisher", zap.Error(err))
	}
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
