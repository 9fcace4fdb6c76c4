package models

import "time"

const (
	RequestOpen     = "open"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

// ItemRequest is a proposal on the request board that users vote on.
type ItemRequest struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:20" json:"category,omitempty"`
	RequestedBy string    `gorm:"type:uuid;not null;index" json:"requestedBy"`
	Status      string    `gorm:"size:20;not null;default:'open';index" json:"status"`
	VoteCount   int       `gorm:"not null;default:0;index" json:"voteCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ItemRequestVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID uint      `gorm:"not null;uniqueIndex:idx_request_vote_user" json:"requestId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_request_vote_user" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ItemRequest) TableName() string     { return "item_requests" }
func (ItemRequestVote) TableName() string { return "item_request_votes" }
