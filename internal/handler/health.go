package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health checks the catalog and ledger databases, Redis and the OCR
// breaker. It never exposes credentials or internals. A tripped breaker is
// reported but does not fail the check: price reads and writes still work.
func Health(stores *infra.Stores, rdb *redis.Client, ocrBreaker *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := pingDB(ctx, stores.Catalog)
		ledgerStatus := dbStatus
		if stores.Separate() {
			ledgerStatus = pingDB(ctx, stores.Ledger)
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		ocrStatus := "disabled"
		if ocrBreaker != nil {
			ocrStatus = ocrBreaker.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || ledgerStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":     status == http.StatusOK,
			"db":     dbStatus,
			"ledger": ledgerStatus,
			"redis":  redisStatus,
			"ocr":    ocrStatus,
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) string {
	if db == nil {
		return "error"
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return "error"
	}
	return "connected"
}
