package app

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsConfig allows the web origin plus every passkey RP origin, so the UI
// and the WebAuthn ceremony can call the API with cookies.
func corsConfig(webOrigin string, rpOrigins []string) cors.Config {
	origins := []string{webOrigin}
	for _, o := range rpOrigins {
		if o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"X-Cache"}, // 统计接口的缓存命中标记
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func useCORS(r *gin.Engine, webOrigin string, rpOrigins []string) {
	r.Use(cors.New(corsConfig(webOrigin, rpOrigins)))
}
