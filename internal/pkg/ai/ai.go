package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pwcx/contract_go_server/config"
)

var (
	ErrEmptyResponse   = errors.New("empty response from model")
	ErrInvalidResponse = errors.New("invalid response from model")
)

// Clause 模型返回的单个条款。字段与提示词中的输出 schema 一一对应，
// 未知的条款类型在上层归一化，这里原样保留。
type Clause struct {
	Type       string  `json:"type"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	PageNumber *int    `json:"page_number,omitempty"`
	Section    string  `json:"section,omitempty"`
}

// ClauseExtraction 条款提取的完整输出
type ClauseExtraction struct {
	Clauses []Clause `json:"clauses"`
}

// Evaluation 健康度评估的完整输出
type Evaluation struct {
	Approved        bool     `json:"approved"`
	Reasoning       string   `json:"reasoning"`
	RiskScore       float64  `json:"risk_score"`
	Recommendations []string `json:"recommendations"`
	CriticalIssues  []string `json:"critical_issues"`
}

// ParsedDocument 文档解析的完整输出
type ParsedDocument struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
}

// Client 大模型客户端。三个方法各自对应一个流水线步骤，
// 每个方法只接受并返回该步骤的输出类型。
type Client interface {
	// ParseDocument 直接把原始文档交给模型提取纯文本，
	// 扫描件等 PDF 库无能为力的文档也能解析
	ParseDocument(ctx context.Context, raw []byte, filename string) (*ParsedDocument, error)
	// ExtractClauses 从合同文本中提取关键条款
	ExtractClauses(ctx context.Context, text string) (*ClauseExtraction, error)
	// EvaluateHealth 基于已提取的条款给出审批结论
	EvaluateHealth(ctx context.Context, text string, extraction *ClauseExtraction) (*Evaluation, error)
	// ModelName 返回使用的模型名，写入分析结果元数据
	ModelName() string
}

// New 根据配置创建模型客户端
func New(cfg *config.AIConfig) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.Provider)
	}
}

// extractJSON 从模型输出中提取 JSON。
// 模型经常把 JSON 包在 markdown 代码块里，或在前后加说明文字。
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyResponse
	}

	// 去掉 ```json ... ``` 包裹
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrInvalidResponse
	}

	return s[start : end+1], nil
}

func decodeJSON(raw string, v interface{}) error {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
