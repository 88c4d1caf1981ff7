package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 合同处理状态（线上传输值为小写字符串）
const (
	StatePending    = "pending"
	StateProcessing = "processing"
	StateAnalyzing  = "analyzing"
	StateEvaluating = "evaluating"
	StateCompleted  = "completed"
	StateFailed     = "failed"
	StateRejected   = "rejected"
)

var contractStates = map[string]struct{}{
	StatePending:    {},
	StateProcessing: {},
	StateAnalyzing:  {},
	StateEvaluating: {},
	StateCompleted:  {},
	StateFailed:     {},
	StateRejected:   {},
}

// IsValidState 判断是否为合法的合同状态字符串
func IsValidState(state string) bool {
	_, ok := contractStates[state]
	return ok
}

// PipelineRun 流水线运行记录，附加在合同的 pipeline_runs 列表末尾。
// 列表只追加不修改，最后一条即"最新运行"。
type PipelineRun struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// PipelineRunList 以 JSON 数组形式存储的运行记录
type PipelineRunList []PipelineRun

func (l PipelineRunList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *PipelineRunList) Scan(value interface{}) error {
	if value == nil {
		*l = PipelineRunList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("unsupported pipeline run list source")
		}
	}
	return json.Unmarshal(bytes, l)
}

// AnalysisResultColumn 以 JSON 形式存储的分析结果（可空）
type AnalysisResultColumn struct {
	Result *AnalysisResult
}

func (c AnalysisResultColumn) Value() (driver.Value, error) {
	if c.Result == nil {
		return nil, nil
	}
	return json.Marshal(c.Result)
}

func (c *AnalysisResultColumn) Scan(value interface{}) error {
	if value == nil {
		c.Result = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("unsupported analysis result source")
		}
	}
	var result AnalysisResult
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	c.Result = &result
	return nil
}

func (c AnalysisResultColumn) MarshalJSON() ([]byte, error) {
	if c.Result == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.Result)
}

func (c *AnalysisResultColumn) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.Result = nil
		return nil
	}
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	c.Result = &result
	return nil
}

// EvaluationResultColumn 以 JSON 形式存储的评估结果（可空）
type EvaluationResultColumn struct {
	Result *EvaluationResult
}

func (c EvaluationResultColumn) Value() (driver.Value, error) {
	if c.Result == nil {
		return nil, nil
	}
	return json.Marshal(c.Result)
}

func (c *EvaluationResultColumn) Scan(value interface{}) error {
	if value == nil {
		c.Result = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("unsupported evaluation result source")
		}
	}
	var result EvaluationResult
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	c.Result = &result
	return nil
}

func (c EvaluationResultColumn) MarshalJSON() ([]byte, error) {
	if c.Result == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.Result)
}

func (c *EvaluationResultColumn) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.Result = nil
		return nil
	}
	var result EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	c.Result = &result
	return nil
}

// Contract 一份上传的合同文档及其处理生命周期。
// 约束：evaluation_result 非空时 analysis_result 必须非空；
// status 任何时刻都是上面枚举的状态之一。
type Contract struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Filename    string `gorm:"size:255;not null" json:"filename"`
	Title       string `gorm:"size:255" json:"title,omitempty"`
	FilePath    string `gorm:"size:500;not null" json:"file_path"`
	FileSize    int64  `json:"file_size"`
	ContentType string `gorm:"size:100;default:application/pdf" json:"content_type"`

	ClientID   *int64 `gorm:"index" json:"client_id,omitempty"`
	UploadedBy int64  `gorm:"not null;index" json:"uploaded_by"`

	Status       string `gorm:"size:20;default:pending;index" json:"status"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	AnalysisResult   AnalysisResultColumn   `gorm:"type:json" json:"analysis_result"`
	EvaluationResult EvaluationResultColumn `gorm:"type:json" json:"evaluation_result"`
	PipelineRuns     PipelineRunList        `gorm:"type:json" json:"pipeline_runs"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	User   *User   `gorm:"foreignKey:UploadedBy" json:"user,omitempty"`
}

func (Contract) TableName() string {
	return "contracts"
}

// LatestRunID 返回最新运行的 run_id；没有运行记录时返回空串
func (c *Contract) LatestRunID() string {
	if len(c.PipelineRuns) == 0 {
		return ""
	}
	return c.PipelineRuns[len(c.PipelineRuns)-1].RunID
}

// IsLatestRun 判断给定 run_id 是否为最新运行（比较最后一条记录，非时间戳）
func (c *Contract) IsLatestRun(runID string) bool {
	return len(c.PipelineRuns) > 0 && c.PipelineRuns[len(c.PipelineRuns)-1].RunID == runID
}
