package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/pkg/jwt"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
)

// BuildChain 构造标准分析链。顺序固定：
// 进入 processing → 解析文本 → 条款分析 → 健康评估 → 标记完成。
// 每一步失败都走 report_failure 分支。
func BuildChain() []queue.StepSignature {
	return []queue.StepSignature{
		{Name: StepChangeState, State: model.StateProcessing, OnFailure: StepReportFailure},
		{Name: StepParseDocument, OnFailure: StepReportFailure},
		{Name: StepAnalyzeClauses, State: model.StateAnalyzing, OnFailure: StepReportFailure},
		{Name: StepEvaluateHealth, State: model.StateEvaluating, OnFailure: StepReportFailure},
		{Name: StepChangeState, State: model.StateCompleted, OnFailure: StepReportFailure},
	}
}

// Coordinator 负责组装并提交流水线任务。
// 每次提交签发一个新的内部令牌和 run_id。
type Coordinator struct {
	queue       *queue.Queue
	jwtSecret   string
	tokenHours  int
	apiBaseURL  string
	storageRoot string
	maxRetries  int
	retryDelay  int
}

func NewCoordinator(q *queue.Queue, cfg *config.Config) *Coordinator {
	return &Coordinator{
		queue:       q,
		jwtSecret:   cfg.JWT.Secret,
		tokenHours:  cfg.JWT.InternalExpireHours,
		apiBaseURL:  cfg.Server.InternalBaseURL,
		storageRoot: cfg.Storage.LocalPath,
		maxRetries:  cfg.Queue.MaxRetries,
		retryDelay:  cfg.Queue.RetryDelaySeconds,
	}
}

// NewRunID 生成新的运行标识
func (c *Coordinator) NewRunID() string {
	return uuid.NewString()
}

// Enqueue 提交一次完整的分析运行，返回队列消息的任务标识。
// 调用方需先把 run 记录追加到合同上再入队。
func (c *Coordinator) Enqueue(ctx context.Context, contractID, userID int64, runID string) (string, error) {
	token, err := jwt.GenerateInternalToken(c.jwtSecret, c.tokenHours)
	if err != nil {
		return "", fmt.Errorf("failed to generate internal token: %w", err)
	}

	taskID := uuid.NewString()
	msg := &queue.PipelineMessage{
		TaskID:     taskID,
		ContractID: contractID,
		RunID:      runID,
		UserID:     userID,
		Steps:      BuildChain(),
		Context: queue.TaskContext{
			RunID:           runID,
			ContractID:      contractID,
			StorageRootPath: c.storageRoot,
			APIAuthToken:    token,
			APIBaseURL:      c.apiBaseURL,
		},
		MaxRetries:        c.maxRetries,
		RetryDelaySeconds: c.retryDelay,
	}

	if err := c.queue.Push(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to enqueue pipeline task: %w", err)
	}

	log.Printf("Enqueued pipeline run %s for contract %d (task %s)", runID, contractID, taskID)
	return taskID, nil
}
