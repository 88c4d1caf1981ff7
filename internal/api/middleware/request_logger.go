package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/repository"
)

// RequestLogger 把每个 API 请求写入请求日志表。
// 写库失败只记日志，不影响请求本身。
func RequestLogger(logRepo *repository.LogRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 静态文件和 WebSocket 不记录
		if strings.HasPrefix(c.Request.URL.Path, "/files/") || c.Request.URL.Path == "/api/ws" {
			c.Next()
			return
		}

		started := time.Now()
		c.Next()

		entry := &model.RequestLog{
			Timestamp:      started.UTC(),
			Endpoint:       c.FullPath(),
			Method:         c.Request.Method,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: float64(time.Since(started).Microseconds()) / 1000.0,
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		}
		if entry.Endpoint == "" {
			entry.Endpoint = c.Request.URL.Path
		}
		if userID, ok := GetUserID(c); ok {
			entry.UserID = &userID
		}
		if len(c.Errors) > 0 {
			entry.ErrorMessage = c.Errors.String()
		}

		if err := logRepo.Create(entry); err != nil {
			log.Printf("Failed to write request log for %s %s: %v", entry.Method, entry.Endpoint, err)
		}
	}
}
