package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"school_inventory_tool/models"
)

type CreateRequestInput struct {
	Title       string
	Description string
	Category    string
	RequestedBy string
}

func (r *Repo) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ItemRequest, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrMissingName
	}
	if in.Category != "" && !models.ValidCategory(in.Category) {
		return nil, ErrInvalidCategory
	}
	req := &models.ItemRequest{
		Title:       title,
		Description: in.Description,
		Category:    in.Category,
		RequestedBy: in.RequestedBy,
		Status:      models.RequestOpen,
	}
	if err := r.DB.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Repo) GetRequest(ctx context.Context, id uint) (*models.ItemRequest, error) {
	var req models.ItemRequest
	if err := r.DB.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListRequests sort: "votes"（默认）或 "recent"
func (r *Repo) ListRequests(ctx context.Context, status, sort string, limit int) ([]models.ItemRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.DB.WithContext(ctx).Model(&models.ItemRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if sort == "recent" {
		q = q.Order("created_at DESC, id DESC")
	} else {
		q = q.Order("vote_count DESC, created_at DESC, id DESC")
	}
	var out []models.ItemRequest
	if err := q.Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Vote is idempotent per user: a second vote by the same user changes nothing.
func (r *Repo) Vote(ctx context.Context, requestID uint, userID string) (*models.ItemRequest, error) {
	return r.changeVote(ctx, requestID, func(tx *gorm.DB) (int, error) {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ItemRequestVote{RequestID: requestID, UserID: userID})
		if res.Error != nil {
			return 0, res.Error
		}
		return int(res.RowsAffected), nil
	})
}

func (r *Repo) Unvote(ctx context.Context, requestID uint, userID string) (*models.ItemRequest, error) {
	return r.changeVote(ctx, requestID, func(tx *gorm.DB) (int, error) {
		res := tx.Where("request_id = ? AND user_id = ?", requestID, userID).
			Delete(&models.ItemRequestVote{})
		if res.Error != nil {
			return 0, res.Error
		}
		return -int(res.RowsAffected), nil
	})
}

// changeVote locks the request, applies the vote row change and moves
// vote_count by the returned delta.
func (r *Repo) changeVote(ctx context.Context, requestID uint, apply func(tx *gorm.DB) (int, error)) (*models.ItemRequest, error) {
	var req models.ItemRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.Status != models.RequestOpen {
			return ErrRequestClosed
		}
		delta, err := apply(tx)
		if err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		if err := tx.Model(&models.ItemRequest{}).Where("id = ?", req.ID).
			Update("vote_count", gorm.Expr("vote_count + ?", delta)).Error; err != nil {
			return err
		}
		req.VoteCount += delta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repo) SetRequestStatus(ctx context.Context, id uint, status string) (*models.ItemRequest, error) {
	switch status {
	case models.RequestOpen, models.RequestAccepted, models.RequestDeclined:
	default:
		return nil, ErrInvalidStatus
	}
	res := r.DB.WithContext(ctx).Model(&models.ItemRequest{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRequestNotFound
	}
	return r.GetRequest(ctx, id)
}

// VotedBy returns the subset of requestIDs userID has voted on.
func (r *Repo) VotedBy(ctx context.Context, userID string, requestIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	var ids []uint
	if err := r.DB.WithContext(ctx).Model(&models.ItemRequestVote{}).
		Where("user_id = ? AND request_id IN ?", userID, requestIDs).
		Pluck("request_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
