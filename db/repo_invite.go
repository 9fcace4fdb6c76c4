package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"school_inventory_tool/models"
)

type CreateInviteInput struct {
	Email      string
	Token      string
	Role       string
	Department string
	Course     string
	ExpiresAt  time.Time
	CreatedBy  string
}

func (r *Repo) CreateInvite(ctx context.Context, in CreateInviteInput) (*models.Invite, error) {
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	if !models.ValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	inv := &models.Invite{
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Token:      in.Token,
		Role:       in.Role,
		Department: in.Department,
		Course:     in.Course,
		ExpiresAt:  in.ExpiresAt,
		CreatedBy:  in.CreatedBy,
	}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

// GetUsableInvite returns the invite for token if it is unused and not expired.
func (r *Repo) GetUsableInvite(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if !inv.Usable(time.Now()) {
		return nil, ErrInviteInvalid
	}
	return &inv, nil
}

func (r *Repo) MarkInviteUsed(ctx context.Context, token string) error {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteInvalid
	}
	return nil
}
