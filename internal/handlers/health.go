package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/equipdesk/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports database and Redis reachability.
type HealthHandler struct {
	db    *gorm.DB
	redis *goredis.Client
}

// NewHealthHandler creates a HealthHandler. redis may be nil when Redis is disabled.
func NewHealthHandler(db *gorm.DB, redis *goredis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	overall := "healthy"

	dbStatus := "ok"
	if err := h.pingDB(ctx); err != nil {
		logger.WithRequest(logger.Error(), c).Err(err).Msg("database health check failed")
		dbStatus = "error"
		overall = "unhealthy"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			logger.WithRequest(logger.Error(), c).Err(err).Msg("redis health check failed")
			redisStatus = "error"
			overall = "unhealthy"
		}
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "equipdesk",
		"components": gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
