package models

import "time"

// Invite 注册邀请，角色与院系在注册时写入用户
type Invite struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"index;size:255;not null" json:"email"`
	Token      string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Role       string     `gorm:"size:20;not null;default:'student'" json:"role"`
	Department string     `gorm:"size:120" json:"department,omitempty"`
	Course     string     `gorm:"size:120" json:"course,omitempty"`
	ExpiresAt  time.Time  `gorm:"index;not null" json:"expiresAt"`
	UsedAt     *time.Time `json:"usedAt,omitempty"`
	CreatedBy  string     `gorm:"size:255" json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Usable reports whether the invite can still be redeemed at now.
func (i *Invite) Usable(now time.Time) bool {
	return i.UsedAt == nil && now.Before(i.ExpiresAt)
}
