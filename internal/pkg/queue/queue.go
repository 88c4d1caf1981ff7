package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Queue struct {
	client    *redis.Client
	queueName string
}

// TaskContext 流水线步骤的共享上下文。
// 每次触发流水线生成一份，随消息传递给每个步骤，
// worker 用其中的 token 回调内部 API。
type TaskContext struct {
	RunID           string `json:"run_id"`
	ContractID      int64  `json:"contract_id"`
	StorageRootPath string `json:"storage_root_path"`
	APIAuthToken    string `json:"api_auth_token"`
	APIBaseURL      string `json:"api_base_url"`
}

// StepSignature 流水线中的一个步骤声明。
// Name 是注册表中的执行器名，State 是步骤开始时要推进到的合同状态，
// OnFailure 是步骤失败时执行的错误分支步骤名。
type StepSignature struct {
	Name      string `json:"name"`
	State     string `json:"state,omitempty"`
	OnFailure string `json:"on_failure,omitempty"`
}

// PipelineMessage 入队的流水线任务。
// 一条消息携带完整的有序步骤链，worker 顺序执行。
type PipelineMessage struct {
	TaskID            string          `json:"task_id"`
	ContractID        int64           `json:"contract_id"`
	RunID             string          `json:"run_id"`
	UserID            int64           `json:"user_id"`
	Steps             []StepSignature `json:"steps"`
	Context           TaskContext     `json:"context"`
	MaxRetries        int             `json:"max_retries"`
	RetryDelaySeconds int             `json:"retry_delay_seconds"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将任务加入队列
func (q *Queue) Push(ctx context.Context, msg *PipelineMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取任务（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*PipelineMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg PipelineMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
