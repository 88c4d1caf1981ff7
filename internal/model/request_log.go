package model

import (
	"time"
)

// RequestLog 请求日志，由日志中间件写入
type RequestLog struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	UserID         *int64    `gorm:"index" json:"user_id,omitempty"`
	Endpoint       string    `gorm:"size:255;index" json:"endpoint"`
	Method         string    `gorm:"size:10" json:"method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs float64   `json:"response_time_ms"`
	IPAddress      string    `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent      string    `gorm:"size:255" json:"user_agent,omitempty"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message,omitempty"`
}

func (RequestLog) TableName() string {
	return "request_logs"
}
