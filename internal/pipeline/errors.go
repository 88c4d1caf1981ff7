package pipeline

import "errors"

var (
	// ErrValidation 前置条件不满足（如未分析先评估），重试没有意义
	ErrValidation = errors.New("validation failed")
	// ErrStaleRun 当前运行已不是最新运行
	ErrStaleRun = errors.New("pipeline run is stale")
)
