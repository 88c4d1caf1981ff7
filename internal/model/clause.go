package model

// 合同条款类别（枚举之外的类别归入 ClauseOther）
const (
	ClausePaymentTerms         = "payment_terms"
	ClauseTermination          = "termination"
	ClauseLiability            = "liability"
	ClauseConfidentiality      = "confidentiality"
	ClauseIntellectualProperty = "intellectual_property"
	ClauseGoverningLaw         = "governing_law"
	ClauseDisputeResolution    = "dispute_resolution"
	ClauseForceMajeure         = "force_majeure"
	ClauseWarranties           = "warranties"
	ClauseIndemnification      = "indemnification"
	ClauseOther                = "other"
)

var clauseTypes = map[string]struct{}{
	ClausePaymentTerms:         {},
	ClauseTermination:          {},
	ClauseLiability:            {},
	ClauseConfidentiality:      {},
	ClauseIntellectualProperty: {},
	ClauseGoverningLaw:         {},
	ClauseDisputeResolution:    {},
	ClauseForceMajeure:         {},
	ClauseWarranties:           {},
	ClauseIndemnification:      {},
	ClauseOther:                {},
}

// NormalizeClauseType 把 AI 返回的类别映射到枚举，未知类别归入 other
func NormalizeClauseType(t string) string {
	if _, ok := clauseTypes[t]; ok {
		return t
	}
	return ClauseOther
}

// ExtractedClause 从合同文本中抽取出的一个分类条款
type ExtractedClause struct {
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	PageNumber *int    `json:"page_number,omitempty"`
	Section    string  `json:"section,omitempty"`
}

// AnalysisResult 条款分析步骤的完整产出
type AnalysisResult struct {
	Clauses        []ExtractedClause `json:"clauses"`
	Metadata       map[string]any    `json:"metadata"`
	ProcessingTime float64           `json:"processing_time"`
	ModelUsed      string            `json:"model_used"`
}

// EvaluationResult 健康度评估步骤的完整产出。
// 只能基于已有的 AnalysisResult 生成。
type EvaluationResult struct {
	Approved        bool     `json:"approved"`
	Reasoning       string   `json:"reasoning"`
	RiskScore       float64  `json:"risk_score"`
	Recommendations []string `json:"recommendations"`
	CriticalIssues  []string `json:"critical_issues"`
	ProcessingTime  float64  `json:"processing_time"`
}
