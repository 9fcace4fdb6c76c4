package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"school_inventory_tool/db"
)

// GlobalScope is the cache scope of the unscoped (admin) summary.
const GlobalScope = "all"

// SummaryCache stores analytics summaries in Redis as JSON.
type SummaryCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewSummaryCache(rdb redis.UniversalClient, ttl time.Duration) *SummaryCache {
	return &SummaryCache{rdb: rdb, ttl: ttl}
}

func summaryKey(scope string) string {
	if scope == "" {
		scope = GlobalScope
	}
	return "analytics:summary:" + scope
}

// Get returns (nil, nil) on a miss.
func (c *SummaryCache) Get(ctx context.Context, scope string) (*db.Summary, error) {
	b, err := c.rdb.Get(ctx, summaryKey(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s db.Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *SummaryCache) Set(ctx context.Context, scope string, s *db.Summary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, summaryKey(scope), b, c.ttl).Err()
}

// Invalidate drops the global summary and the given manager scopes.
func (c *SummaryCache) Invalidate(ctx context.Context, scopes ...string) error {
	keys := []string{summaryKey(GlobalScope)}
	for _, s := range scopes {
		if s != "" && s != GlobalScope {
			keys = append(keys, summaryKey(s))
		}
	}
	return c.rdb.Del(ctx, keys...).Err()
}
