package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/pkg/ai"
)

var ErrEmptyText = errors.New("文本内容不能为空")

// GenAIService 直接对一段文本做条款分析和健康度评估，
// 不落库、不走流水线，用于前端的即时分析入口。
type GenAIService struct {
	ai ai.Client
}

func NewGenAIService(aiClient ai.Client) *GenAIService {
	return &GenAIService{ai: aiClient}
}

// Analyze 提取文本中的关键条款
func (s *GenAIService) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	started := time.Now()
	extraction, err := s.ai.ExtractClauses(ctx, text)
	if err != nil {
		return nil, err
	}

	result := &model.AnalysisResult{
		Clauses: make([]model.ExtractedClause, 0, len(extraction.Clauses)),
		Metadata: map[string]any{
			"clause_count": len(extraction.Clauses),
			"char_count":   len(text),
		},
		ProcessingTime: time.Since(started).Seconds(),
		ModelUsed:      s.ai.ModelName(),
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
	return result, nil
}

// Evaluate 基于文本和条款给出审批结论
func (s *GenAIService) Evaluate(ctx context.Context, text string, clauses []model.ExtractedClause) (*model.EvaluationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	extraction := &ai.ClauseExtraction{
		Clauses: make([]ai.Clause, 0, len(clauses)),
	}
	for _, c := range clauses {
		extraction.Clauses = append(extraction.Clauses, ai.Clause{
			Type:       c.Type,
			Content:    c.Content,
			Confidence: c.Confidence,
			PageNumber: c.PageNumber,
			Section:    c.Section,
		})
	}

	started := time.Now()
	eval, err := s.ai.EvaluateHealth(ctx, text, extraction)
	if err != nil {
		return nil, err
	}

	return &model.EvaluationResult{
		Approved:        eval.Approved,
		Reasoning:       eval.Reasoning,
		RiskScore:       eval.RiskScore,
		Recommendations: eval.Recommendations,
		CriticalIssues:  eval.CriticalIssues,
		ProcessingTime:  time.Since(started).Seconds(),
	}, nil
}
