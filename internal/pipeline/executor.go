package pipeline

import (
	"context"
	"log"

	"github.com/pwcx/contract_go_server/internal/pkg/ai"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
)

// 步骤名，入队消息中引用
const (
	StepChangeState    = "change_state"
	StepParseDocument  = "parse_document"
	StepAnalyzeClauses = "analyze_clauses"
	StepEvaluateHealth = "evaluate_health"
	StepReportFailure  = "report_failure"
)

// Executor 单个流水线步骤的执行器
type Executor interface {
	Name() string
	Execute(ctx context.Context, task *queue.TaskContext, sig queue.StepSignature) error
}

// FailureHandler 步骤失败后的错误分支
type FailureHandler interface {
	Name() string
	HandleFailure(ctx context.Context, task *queue.TaskContext, message string) error
}

// Deps 执行器的共享依赖
type Deps struct {
	Store storage.Store
	AI    ai.Client
	// ParseWithAI 为 true 时优先让模型直接解析文档，PDF 库作为回退
	ParseWithAI bool
}

// Registry 执行器注册表，worker 按步骤名查找
type Registry struct {
	executors map[string]Executor
	handlers  map[string]FailureHandler
}

// NewRegistry 创建注册表并注册全部内置执行器
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		executors: make(map[string]Executor),
		handlers:  make(map[string]FailureHandler),
	}

	r.Register(&ChangeStateExecutor{})
	r.Register(&ParseDocumentExecutor{deps: deps})
	r.Register(&AnalyzeClausesExecutor{deps: deps})
	r.Register(&EvaluateHealthExecutor{deps: deps})
	r.RegisterHandler(&ReportFailureHandler{})

	return r
}

func (r *Registry) Register(e Executor) {
	r.executors[e.Name()] = e
}

func (r *Registry) RegisterHandler(h FailureHandler) {
	r.handlers[h.Name()] = h
}

func (r *Registry) Get(name string) (Executor, bool) {
	e, ok := r.executors[name]
	return e, ok
}

func (r *Registry) GetHandler(name string) (FailureHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// beginStep 每个步骤的公共前奏：过期检查 + 状态推进。
// 本次运行已不是最新运行时返回 ErrStaleRun，调用方原样向上传递，
// 由 worker 静默终止剩余链条。
func beginStep(ctx context.Context, api *APIClient, task *queue.TaskContext, sig queue.StepSignature) error {
	latest, err := api.IsLatestRun(ctx)
	if err != nil {
		return err
	}
	if !latest {
		log.Printf("Pipeline run %s for contract %d is stale, skipping step %s", task.RunID, task.ContractID, sig.Name)
		return ErrStaleRun
	}

	if sig.State != "" {
		if err := api.ChangeState(ctx, sig.State); err != nil {
			return err
		}
	}
	return nil
}
