package api

import (
	"net/http"

	"Datametry/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HealthHandler 存活检查
type HealthHandler struct {
	db     *gorm.DB
	pool   *redis.Pool // 未启用 redis 后端时为 nil
	logger *logrus.Logger
}

// NewHealthHandler 创建 HealthHandler
func NewHealthHandler(db *gorm.DB, pool *redis.Pool, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, pool: pool, logger: logger}
}

// Healthz GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err == nil && h.pool != nil {
		err = database.PingRedis(ctx, h.pool)
	}
	if err != nil {
		entry(c, h.logger).WithError(err).Warn("健康检查失败")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
