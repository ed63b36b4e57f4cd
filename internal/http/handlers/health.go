package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-metrics/internal/http/response"
)

type HealthHandler struct {
	db      *gorm.DB
	redis   goredis.UniversalClient
	timeout time.Duration
}

// NewHealthHandler builds the liveness and readiness probes. redis may be nil when the
// lock backend does not use it.
func NewHealthHandler(db *gorm.DB, redis goredis.UniversalClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, timeout: 2 * time.Second}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.pingDB(ctx); err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "db_unavailable", err)
		return
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			response.RespondError(c, http.StatusServiceUnavailable, "redis_unavailable", err)
			return
		}
	}
	response.RespondOK(c, gin.H{"status": "ready"})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	if h.db == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
