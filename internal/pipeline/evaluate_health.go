package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/pkg/ai"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
)

// EvaluateHealthExecutor 基于条款分析结果给出审批结论。
// 分析结果缺失属于校验错误，直接失败不重试。
type EvaluateHealthExecutor struct {
	deps Deps
}

func (e *EvaluateHealthExecutor) Name() string {
	return StepEvaluateHealth
}

func (e *EvaluateHealthExecutor) Execute(ctx context.Context, task *queue.TaskContext, sig queue.StepSignature) error {
	api := NewAPIClient(task)

	if err := beginStep(ctx, api, task, sig); err != nil {
		return err
	}

	contract, err := api.GetContract(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch contract: %w", err)
	}

	if contract.AnalysisResult.Result == nil {
		msg := "No analysis results found. Contract must be analyzed first."
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	}

	text, err := e.deps.Store.Load(storage.ParsedTextKey(task.ContractID, task.RunID))
	if err != nil {
		// 文本可能已被清理，退化为只基于条款评估
		text = nil
	}

	extraction := &ai.ClauseExtraction{
		Clauses: make([]ai.Clause, 0, len(contract.AnalysisResult.Result.Clauses)),
	}
	for _, c := range contract.AnalysisResult.Result.Clauses {
		extraction.Clauses = append(extraction.Clauses, ai.Clause{
			Type:       c.Type,
			Content:    c.Content,
			Confidence: c.Confidence,
			PageNumber: c.PageNumber,
			Section:    c.Section,
		})
	}

	started := time.Now()
	evaluation, err := e.deps.AI.EvaluateHealth(ctx, string(text), extraction)
	if err != nil {
		msg := fmt.Sprintf("Health evaluation failed: %v", err)
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%s: %w", msg, err)
	}

	result := &model.EvaluationResult{
		Approved:        evaluation.Approved,
		Reasoning:       evaluation.Reasoning,
		RiskScore:       evaluation.RiskScore,
		Recommendations: evaluation.Recommendations,
		CriticalIssues:  evaluation.CriticalIssues,
		ProcessingTime:  time.Since(started).Seconds(),
	}

	if err := api.SetEvaluationResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save evaluation result: %w", err)
	}

	log.Printf("Evaluated contract %d (run %s): approved=%v risk=%.2f",
		task.ContractID, task.RunID, result.Approved, result.RiskScore)
	return nil
}
