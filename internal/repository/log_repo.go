package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/pwcx/contract_go_server/internal/model"
)

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(entry *model.RequestLog) error {
	return r.db.Create(entry).Error
}

// List 按时间倒序获取请求日志
func (r *LogRepository) List(page, pageSize int, endpoint string, statusCode int) ([]*model.RequestLog, int64, error) {
	var logs []*model.RequestLog
	var total int64

	query := r.db.Model(&model.RequestLog{})

	if endpoint != "" {
		query = query.Where("endpoint LIKE ?", "%"+endpoint+"%")
	}
	if statusCode > 0 {
		query = query.Where("status_code = ?", statusCode)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("timestamp DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// Stats 聚合指定时间窗口内的请求统计
type LogStats struct {
	TotalRequests     int64   `json:"total_requests"`
	ErrorCount        int64   `json:"error_count"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

func (r *LogRepository) Stats(since time.Time) (*LogStats, error) {
	var stats LogStats

	query := r.db.Model(&model.RequestLog{}).Where("timestamp >= ?", since)

	if err := query.Count(&stats.TotalRequests).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.RequestLog{}).
		Where("timestamp >= ? AND status_code >= ?", since, 500).
		Count(&stats.ErrorCount).Error; err != nil {
		return nil, err
	}

	if stats.TotalRequests > 0 {
		row := r.db.Model(&model.RequestLog{}).
			Where("timestamp >= ?", since).
			Select("avg(response_time_ms)").
			Row()
		if err := row.Scan(&stats.AvgResponseTimeMs); err != nil {
			return nil, err
		}
	}

	return &stats, nil
}

// DeleteOlderThan 删除过期日志
func (r *LogRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&model.RequestLog{})
	return result.RowsAffected, result.Error
}
