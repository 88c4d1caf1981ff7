package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
)

// AnalyzeClausesExecutor 调用模型从已解析的文本中提取关键条款，
// 结果写回内部 API。
type AnalyzeClausesExecutor struct {
	deps Deps
}

func (e *AnalyzeClausesExecutor) Name() string {
	return StepAnalyzeClauses
}

func (e *AnalyzeClausesExecutor) Execute(ctx context.Context, task *queue.TaskContext, sig queue.StepSignature) error {
	api := NewAPIClient(task)

	if err := beginStep(ctx, api, task, sig); err != nil {
		return err
	}

	key := storage.ParsedTextKey(task.ContractID, task.RunID)
	text, err := e.deps.Store.Load(key)
	if err != nil {
		msg := "Clause analysis failed: parsed text not found. Document must be parsed first."
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	}

	started := time.Now()
	extraction, err := e.deps.AI.ExtractClauses(ctx, string(text))
	if err != nil {
		msg := fmt.Sprintf("Clause analysis failed: %v", err)
		api.ReportFailure(ctx, msg)
		return fmt.Errorf("%s: %w", msg, err)
	}

	metadata := map[string]any{
		"clause_count": len(extraction.Clauses),
		"char_count":   len(text),
	}
	// 解析步骤的元信息可能已被清理，拿不到不影响分析
	if raw, err := e.deps.Store.Load(storage.ParsedMetaKey(task.ContractID, task.RunID)); err == nil {
		var meta ParsedMeta
		if err := json.Unmarshal(raw, &meta); err == nil {
			metadata["page_count"] = meta.PageCount
		}
	}

	result := &model.AnalysisResult{
		Clauses:        make([]model.ExtractedClause, 0, len(extraction.Clauses)),
		Metadata:       metadata,
		ProcessingTime: time.Since(started).Seconds(),
		ModelUsed:      e.deps.AI.ModelName(),
	}
	for _, c := range extraction.Clauses {
		result.Clauses = append(result.Clauses, model.ExtractedClause{
			Type:       model.NormalizeClauseType(c.Type),
			Content:    c.Content,
			Confidence: c.Confidence,
			PageNumber: c.PageNumber,
			Section:    c.Section,
		})
	}

	if err := api.SetAnalysisResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}

	log.Printf("Analyzed contract %d (run %s): %d clauses", task.ContractID, task.RunID, len(result.Clauses))
	return nil
}
