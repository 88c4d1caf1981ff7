package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pwcx/contract_go_server/internal/pipeline"
	"github.com/pwcx/contract_go_server/internal/pkg/pubsub"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
)

// 步骤名到进度阶段的映射
var stepProgress = map[string]string{
	pipeline.StepParseDocument:  pubsub.StepParsing,
	pipeline.StepAnalyzeClauses: pubsub.StepAnalyzing,
	pipeline.StepEvaluateHealth: pubsub.StepEvaluating,
}

// Processor 流水线任务处理器。
// 一条消息携带完整步骤链，按序在本进程内执行；
// 单步失败先在重试预算内重试，耗尽后走该步骤声明的错误分支并终止链条。
type Processor struct {
	registry  *pipeline.Registry
	publisher *pubsub.Publisher
}

// NewProcessor 创建任务处理器
func NewProcessor(registry *pipeline.Registry, publisher *pubsub.Publisher) *Processor {
	return &Processor{
		registry:  registry,
		publisher: publisher,
	}
}

// Process 执行一条流水线消息
func (p *Processor) Process(ctx context.Context, msg *queue.PipelineMessage) error {
	publishProgress := func(step, status, errMsg string) {
		if p.publisher == nil {
			return
		}
		p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:     msg.UserID,
			ContractID: msg.ContractID,
			RunID:      msg.RunID,
			Status:     status,
			Step:       step,
			Error:      errMsg,
		})
	}

	for _, sig := range msg.Steps {
		executor, ok := p.registry.Get(sig.Name)
		if !ok {
			err := fmt.Errorf("unknown pipeline step: %s", sig.Name)
			p.runFailureBranch(ctx, msg, sig, err)
			publishProgress(sig.Name, "failed", err.Error())
			return err
		}

		if step, ok := stepProgress[sig.Name]; ok {
			publishProgress(step, "processing", "")
		}

		if err := p.executeWithRetry(ctx, executor, msg, sig); err != nil {
			// 运行已被更新的运行取代：静默放弃剩余步骤，不算失败
			if errors.Is(err, pipeline.ErrStaleRun) {
				log.Printf("Pipeline run %s for contract %d superseded, abandoning remaining steps", msg.RunID, msg.ContractID)
				return nil
			}
			p.runFailureBranch(ctx, msg, sig, err)
			publishProgress(sig.Name, "failed", err.Error())
			return err
		}
	}

	publishProgress(pubsub.StepDone, "completed", "")
	log.Printf("Pipeline run %s for contract %d completed", msg.RunID, msg.ContractID)
	return nil
}

// executeWithRetry 在重试预算内执行单个步骤。
// 校验错误（前置条件缺失）重试没有意义，立即失败。
func (p *Processor) executeWithRetry(ctx context.Context, executor pipeline.Executor, msg *queue.PipelineMessage, sig queue.StepSignature) error {
	maxRetries := msg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	delay := time.Duration(msg.RetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			log.Printf("Retrying step %s for contract %d (attempt %d/%d)", sig.Name, msg.ContractID, attempt, maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := executor.Execute(ctx, &msg.Context, sig)
		if err == nil {
			return nil
		}
		if errors.Is(err, pipeline.ErrValidation) || errors.Is(err, pipeline.ErrStaleRun) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("step %s failed after %d attempts: %w", sig.Name, maxRetries, lastErr)
}

// runFailureBranch 执行步骤声明的错误分支。
// 分支本身出错只记日志，绝不再抛出。
func (p *Processor) runFailureBranch(ctx context.Context, msg *queue.PipelineMessage, sig queue.StepSignature, cause error) {
	if sig.OnFailure == "" {
		return
	}

	handler, ok := p.registry.GetHandler(sig.OnFailure)
	if !ok {
		log.Printf("Unknown failure handler %s for step %s", sig.OnFailure, sig.Name)
		return
	}

	if err := handler.HandleFailure(ctx, &msg.Context, cause.Error()); err != nil {
		log.Printf("Failure handler %s errored for contract %d: %v", sig.OnFailure, msg.ContractID, err)
	}
}
