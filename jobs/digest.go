package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"school_inventory_tool/cache"
	"school_inventory_tool/db"
)

// SummaryStore receives the refreshed global summary. nil skips the refresh.
type SummaryStore interface {
	Set(ctx context.Context, scope string, s *db.Summary) error
}

// Digest logs the approval backlog and refreshes the cached global summary.
type Digest struct {
	Repo  *db.Repo
	Cache SummaryStore
	Log   *zap.Logger
}

func (d *Digest) Run(ctx context.Context) error {
	claims, returns, err := d.Repo.PendingCounts(ctx)
	if err != nil {
		return fmt.Errorf("pending counts: %w", err)
	}
	d.Log.Info("inventory digest",
		zap.Int64("pending_claims", claims),
		zap.Int64("pending_returns", returns))

	if d.Cache == nil {
		return nil
	}
	s, err := d.Repo.Summary(ctx, "")
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	if err := d.Cache.Set(ctx, cache.GlobalScope, s); err != nil {
		return fmt.Errorf("cache summary: %w", err)
	}
	return nil
}

// Jobs 可按名字单独运行
func Jobs(d *Digest) map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"digest": d.Run,
	}
}

// Start schedules the digest on spec and starts the scheduler.
func Start(spec string, d *Digest) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := d.Run(ctx); err != nil {
			d.Log.Error("digest job failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("register digest job %q: %w", spec, err)
	}
	c.Start()
	d.Log.Info("cron scheduler started", zap.String("digest", spec))
	return c, nil
}
