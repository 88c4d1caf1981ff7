package dto

import "github.com/pwcx/contract_go_server/internal/model"

// AnalyzeTextRequest 直接分析一段合同文本（不经过流水线）
type AnalyzeTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// EvaluateTextRequest 直接评估，clauses 可以来自先前的分析结果
type EvaluateTextRequest struct {
	Text    string                  `json:"text" binding:"required"`
	Clauses []model.ExtractedClause `json:"clauses"`
}
