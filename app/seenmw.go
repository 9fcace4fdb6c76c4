package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"school_inventory_tool/db"
)

// TouchLastSeen updates users.last_seen_at at most once per throttle window.
func TouchLastSeen(repo *db.Repo, rdb redis.UniversalClient, throttle time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(KeyUserID)
		if uid == "" {
			c.Next()
			return
		}

		key := "inv:user:lastseen:" + uid
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			if err := repo.TouchUserSeen(c, uid); err != nil { // 不阻塞请求
				log.Debug("touch last seen", zap.String("user_id", uid), zap.Error(err))
			}
		}
		c.Next()
	}
}
