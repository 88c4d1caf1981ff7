package dto

import (
	"time"

	"github.com/pwcx/contract_go_server/internal/model"
)

// UploadContractResponse 上传响应
type UploadContractResponse struct {
	ContractID int64  `json:"contract_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
}

// ContractListItem 列表项，不含大字段
type ContractListItem struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	ClientID  *int64    `json:"client_id,omitempty"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContractDetail 合同详情
type ContractDetail struct {
	ID               int64                   `json:"id"`
	Filename         string                  `json:"filename"`
	Title            string                  `json:"title,omitempty"`
	FileSize         int64                   `json:"file_size"`
	ContentType      string                  `json:"content_type"`
	ClientID         *int64                  `json:"client_id,omitempty"`
	Status           string                  `json:"status"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	AnalysisResult   *model.AnalysisResult   `json:"analysis_result"`
	EvaluationResult *model.EvaluationResult `json:"evaluation_result"`
	PipelineRuns     []model.PipelineRun     `json:"pipeline_runs"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// UpdateContractRequest 更新合同元数据
type UpdateContractRequest struct {
	Title    *string `json:"title"`
	ClientID *int64  `json:"client_id"`
}

// TriggerAnalysisResponse 触发分析响应
type TriggerAnalysisResponse struct {
	ContractID int64  `json:"contract_id"`
	RunID      string `json:"run_id"`
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
}

// ContractStatusResponse 轻量状态查询响应
type ContractStatusResponse struct {
	ContractID   int64  `json:"contract_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	LatestRunID  string `json:"latest_run_id,omitempty"`
	HasAnalysis  bool   `json:"has_analysis"`
	HasEvaluation bool  `json:"has_evaluation"`
}

// ChangeStateRequest 内部状态变更参数（query 绑定）
type ChangeStateRequest struct {
	State string `form:"state" binding:"required"`
	RunID string `form:"run_id"`
}

// ReportFailureRequest 内部失败上报
type ReportFailureRequest struct {
	ErrorMessage string `json:"error_message"`
}

// IsLatestRunResponse 过期检查响应
type IsLatestRunResponse struct {
	IsLatest bool `json:"is_latest"`
}
