package dto

// MetricsResponse 平台运行指标
type MetricsResponse struct {
	ContractsByStatus map[string]int64 `json:"contracts_by_status"`
	ApprovedCount     int64            `json:"approved_count"`
	RejectedCount     int64            `json:"rejected_count"`
	QueueDepth        int64            `json:"queue_depth"`
	TotalRequests24h  int64            `json:"total_requests_24h"`
	ErrorCount24h     int64            `json:"error_count_24h"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
}
