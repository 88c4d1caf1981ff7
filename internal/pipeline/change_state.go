package pipeline

import (
	"context"

	"github.com/pwcx/contract_go_server/internal/pkg/queue"
)

// ChangeStateExecutor 把合同推进到步骤声明的状态。
// 链条首尾各有一个实例（processing / completed）。
type ChangeStateExecutor struct{}

func (e *ChangeStateExecutor) Name() string {
	return StepChangeState
}

func (e *ChangeStateExecutor) Execute(ctx context.Context, task *queue.TaskContext, sig queue.StepSignature) error {
	api := NewAPIClient(task)

	return beginStep(ctx, api, task, sig)
}
