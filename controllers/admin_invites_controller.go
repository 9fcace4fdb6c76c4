package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/config"
	"school_inventory_tool/db"
	"school_inventory_tool/models"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email      string `json:"email" binding:"required,email"`
		Role       string `json:"role"`
		Department string `json:"department"`
		Course     string `json:"course"`
		Expires    int    `json:"expiresDays"` // 默认 1 天
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	cl, _ := app.CallerFrom(c)

	token := app.NewToken()
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Repo.CreateInvite(ctx, db.CreateInviteInput{
		Email:      in.Email,
		Token:      token,
		Role:       in.Role,
		Department: strings.TrimSpace(in.Department),
		Course:     strings.TrimSpace(in.Course),
		ExpiresAt:  time.Now().AddDate(0, 0, in.Expires),
		CreatedBy:  cl.ID,
	})
	if err != nil {
		ic.writeError(c, err)
		return
	}

	link := app.InviteLink(ic.Cfg.HTTP.WebOrigin, token)

	// 未配置 SMTP 时只打印日志
	if err := sendInviteMail(ic.Cfg.SMTP, ic.Log, inv.Email, link, in.Expires); err != nil {
		ic.Log.Warn("invite email send failed", zap.String("email", inv.Email), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"link":   link, // 方便开发环境直接点
		"invite": inv,
	})
}

// -------------------- 邮件发送 --------------------

func sendInviteMail(conf config.SMTPConfig, log *zap.Logger, toEmail, link string, expiresDays int) error {
	if conf.Host == "" || (conf.Username == "" && conf.From == "") {
		log.Info("invite link (smtp not configured)",
			zap.String("email", toEmail), zap.String("link", link), zap.Int("expires_days", expiresDays))
		return nil
	}

	fromAddr := conf.From
	if fromAddr == "" {
		fromAddr = conf.Username
	}

	subject := fmt.Sprintf("%s Invitation", conf.AppName)
	htmlBody := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>Hello,</p>
  <p>You have been invited to join <b>%s</b>. Click the button below to create your passkey and sign in:</p>
  <p>
    <a href="%s" style="display:inline-block; padding:10px 16px; background:#2563EB; color:#fff; text-decoration:none; border-radius:6px;">
      Accept Invitation
    </a>
  </p>
  <p>Or open this link directly:</p>
  <p><a href="%s">%s</a></p>
  <p>This invitation will expire in %d day(s).</p>
</div>
`, conf.AppName, link, link, link, expiresDays)

	msg := buildMIME(conf.AppName, fromAddr, toEmail, subject, htmlBody)

	auth := smtp.PlainAuth("", conf.Username, conf.Password, conf.Host)
	return smtp.SendMail(conf.Host+":"+conf.Port, auth, fromAddr, []string{toEmail}, []byte(msg))
}

func buildMIME(fromName, fromAddr, to, subject, html string) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + html
}
