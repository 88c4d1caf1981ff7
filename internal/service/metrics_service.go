package service

import (
	"context"
	"time"

	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/repository"
)

type MetricsService struct {
	contractRepo *repository.ContractRepository
	logRepo      *repository.LogRepository
	queue        *queue.Queue
}

func NewMetricsService(
	contractRepo *repository.ContractRepository,
	logRepo *repository.LogRepository,
	q *queue.Queue,
) *MetricsService {
	return &MetricsService{
		contractRepo: contractRepo,
		logRepo:      logRepo,
		queue:        q,
	}
}

// Collect 聚合平台运行指标
func (s *MetricsService) Collect(ctx context.Context) (*dto.MetricsResponse, error) {
	byStatus, err := s.contractRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	approved, rejected, err := s.contractRepo.CountApproved()
	if err != nil {
		return nil, err
	}

	resp := &dto.MetricsResponse{
		ContractsByStatus: byStatus,
		ApprovedCount:     approved,
		RejectedCount:     rejected,
	}

	if s.queue != nil {
		depth, err := s.queue.Length(ctx)
		if err == nil {
			resp.QueueDepth = depth
		}
	}

	if s.logRepo != nil {
		stats, err := s.logRepo.Stats(time.Now().UTC().Add(-24 * time.Hour))
		if err == nil {
			resp.TotalRequests24h = stats.TotalRequests
			resp.ErrorCount24h = stats.ErrorCount
			resp.AvgResponseTimeMs = stats.AvgResponseTimeMs
		}
	}

	return resp, nil
}
