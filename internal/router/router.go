package router

import (
	"github.com/candelento/balanza/internal/config"
	"github.com/candelento/balanza/internal/handler"
	"github.com/candelento/balanza/internal/middleware"
	"github.com/candelento/balanza/internal/offline"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// New returns the gateway engine. rdb may be nil when the cache is in memory.
func New(cfg *config.Config, w *offline.Worker, limiter *middleware.RateLimiter, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(limiter.Handler())

	gw := handler.NewGatewayHandler(w)

	r.GET("/health", handler.Health(rdb, w.CacheName()))
	r.GET("/sw.js", gw.ServiceWorker)
	r.GET("/manifest.json", gw.Manifest)
	r.GET("/cdn/:host/*path", gw.CDN)

	// Pages, assets and the API itself
	r.NoRoute(gw.Asset)

	return r
}
