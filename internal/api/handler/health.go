package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/pkg/response"
)

type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Check 健康检查
// GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	status := gin.H{
		"status":   "ok",
		"database": "ok",
		"redis":    "ok",
	}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["status"] = "degraded"
		status["database"] = "unavailable"
	}

	if err := h.rdb.Ping(c.Request.Context()).Err(); err != nil {
		status["status"] = "degraded"
		status["redis"] = "unavailable"
	}

	response.Success(c, status)
}
