package db

import (
	"context"
	"sort"
	"time"

	"school_inventory_tool/models"
)

type StatusCount struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	RowCount int64  `json:"rows"`
	Quantity int64  `json:"quantity"`
}

type Summary struct {
	Items          []StatusCount        `json:"items"`
	TotalQuantity  int64                `json:"totalQuantity"`
	Claims         map[string]int64     `json:"claims"` // pending / approved / rejected
	PendingReturns int64                `json:"pendingReturns"`
	TopRequests    []models.ItemRequest `json:"topRequests"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

// Summary aggregates inventory state. A non-empty managerID scopes items,
// claims and returns to that manager's rows; the request board is global.
func (r *Repo) Summary(ctx context.Context, managerID string) (*Summary, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.analytics.summary")
	defer span.End()

	out := &Summary{Claims: map[string]int64{
		models.ClaimPending:  0,
		models.ClaimApproved: 0,
		models.ClaimRejected: 0,
	}}
	t := models.ItemTable

	items := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Select("category, status, COUNT(*) AS row_count, COALESCE(SUM(quantity), 0) AS quantity").
		Group("category, status").
		Order("category, status")
	if managerID != "" {
		items = items.Where("created_by = ?", managerID)
	}
	if err := items.Scan(&out.Items).Error; err != nil {
		return nil, err
	}
	for _, sc := range out.Items {
		out.TotalQuantity += sc.Quantity
	}

	var claimRows []struct {
		Status string
		N      int64
	}
	claims := r.DB.WithContext(ctx).Model(&models.InventoryClaim{}).
		Select(models.ClaimTable + ".status AS status, COUNT(*) AS n").
		Group(models.ClaimTable + ".status")
	if managerID != "" {
		claims = claims.Joins("JOIN "+t+" i ON i.id = "+models.ClaimTable+".item_id").
			Where("i.created_by = ?", managerID)
	}
	if err := claims.Scan(&claimRows).Error; err != nil {
		return nil, err
	}
	for _, row := range claimRows {
		out.Claims[row.Status] = row.N
	}

	returns := r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("return_status = ? AND status = ?", models.ReturnPending, models.StatusInUse)
	if managerID != "" {
		returns = returns.Where("created_by = ?", managerID)
	}
	if err := returns.Count(&out.PendingReturns).Error; err != nil {
		return nil, err
	}

	top, err := r.ListRequests(ctx, models.RequestOpen, "votes", 5)
	if err != nil {
		return nil, err
	}
	out.TopRequests = top
	out.GeneratedAt = time.Now().UTC()
	return out, nil
}

type DayCount struct {
	Day      string `json:"day"` // YYYY-MM-DD (UTC)
	Created  int    `json:"created"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
}

// ClaimsPerDay buckets claims created in the last `days` days by UTC date.
// 分桶在内存里做，不依赖数据库的日期函数
func (r *Repo) ClaimsPerDay(ctx context.Context, days int, now time.Time) ([]DayCount, error) {
	if days <= 0 || days > 366 {
		days = 30
	}
	start := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	var claims []models.InventoryClaim
	if err := r.DB.WithContext(ctx).
		Select("id, status, created_at").
		Where("created_at >= ?", start).
		Find(&claims).Error; err != nil {
		return nil, err
	}

	buckets := make(map[string]*DayCount, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format(time.DateOnly)
		buckets[d] = &DayCount{Day: d}
	}
	for _, cl := range claims {
		b, ok := buckets[cl.CreatedAt.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		b.Created++
		switch cl.Status {
		case models.ClaimApproved:
			b.Approved++
		case models.ClaimRejected:
			b.Rejected++
		}
	}

	out := make([]DayCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// PendingCounts is used by the digest job.
func (r *Repo) PendingCounts(ctx context.Context) (claims, returns int64, err error) {
	if err = r.DB.WithContext(ctx).Model(&models.InventoryClaim{}).
		Where("status = ?", models.ClaimPending).Count(&claims).Error; err != nil {
		return
	}
	err = r.DB.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("return_status = ? AND status = ?", models.ReturnPending, models.StatusInUse).
		Count(&returns).Error
	return
}
