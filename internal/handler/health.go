package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/infra"
	"github.com/koouhz/beefybeer-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Health returns a JSON health check response.
// Checks store and Redis connectivity; never exposes credentials or internals.
// A nil rdb reports Redis as disabled without failing the check; an open
// cache breaker is reported but does not fail it either.
func Health(ping func(ctx context.Context) error, rdb *redis.Client, cacheCB *infra.Circuito) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if ping != nil && ping(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		var dlq int64
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueIncidentes); err == nil {
				dlq = n
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		cacheStatus := "disabled"
		if cacheCB != nil {
			cacheStatus = cacheCB.Estado().String()
		}

		c.JSON(status, gin.H{
			"ok":          status == http.StatusOK,
			"db":          dbStatus,
			"redis":       redisStatus,
			"stock_cache": cacheStatus,
			// incidents whose alert could not be delivered
			"incidentes_dlq": dlq,
		})
	}
}
