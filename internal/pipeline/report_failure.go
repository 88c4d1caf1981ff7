package pipeline

import (
	"context"
	"log"

	"github.com/pwcx/contract_go_server/internal/pkg/queue"
)

// ReportFailureHandler 错误分支：把合同标记为 failed 并记录错误信息。
// 内部 API 的 failed 接口幂等，步骤自身上报过失败后再走到这里也安全。
// 上报失败只记日志不向上传播，错误分支永远不会让任务再次失败。
type ReportFailureHandler struct{}

func (h *ReportFailureHandler) Name() string {
	return StepReportFailure
}

func (h *ReportFailureHandler) HandleFailure(ctx context.Context, task *queue.TaskContext, message string) error {
	api := NewAPIClient(task)

	if message == "" {
		message = "Contract analysis failed"
	}

	if err := api.ReportFailure(ctx, message); err != nil {
		log.Printf("Failed to report failure for contract %d (run %s): %v", task.ContractID, task.RunID, err)
	}
	return nil
}
