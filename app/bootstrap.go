package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"school_inventory_tool/config"
	"school_inventory_tool/db"
	"school_inventory_tool/models"
)

// NewToken returns a random 32-char hex invite token.
func NewToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// InviteLink 前端登录页带 inviteToken
func InviteLink(webOrigin, token string) string {
	return strings.TrimRight(webOrigin, "/") + "/login?inviteToken=" + token
}

// BootstrapFirstAdmin issues a one-day admin invite for BOOTSTRAP_ADMIN_EMAIL
// while no admin user exists. It returns the invite link, or "" when skipped.
func BootstrapFirstAdmin(ctx context.Context, cfg *config.Config, repo *db.Repo, log *zap.Logger) (string, error) {
	if cfg.Admin.BootstrapEmail == "" {
		return "", nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return "", fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return "", nil // 已经有管理员，跳过
	}

	token := NewToken()
	if _, err := repo.CreateInvite(ctx, db.CreateInviteInput{
		Email:     cfg.Admin.BootstrapEmail,
		Token:     token,
		Role:      models.RoleAdmin,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedBy: "bootstrap",
	}); err != nil {
		return "", fmt.Errorf("bootstrap invite: %w", err)
	}

	link := InviteLink(cfg.HTTP.WebOrigin, token)
	log.Info("no admin found, created an admin invite",
		zap.String("email", cfg.Admin.BootstrapEmail),
		zap.String("link", link))
	return link, nil
}
