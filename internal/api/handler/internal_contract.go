package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/internal/model"
	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pkg/response"
	"github.com/pwcx/contract_go_server/internal/service"
)

// InternalContractHandler 流水线 worker 回调的内部接口。
// 路由挂在内部令牌认证之后，不做用户归属校验。
type InternalContractHandler struct {
	contractService *service.ContractService
}

func NewInternalContractHandler(contractService *service.ContractService) *InternalContractHandler {
	return &InternalContractHandler{
		contractService: contractService,
	}
}

// Get 获取合同完整记录
// GET /api/contracts/:id/internal
func (h *InternalContractHandler) Get(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	contract, err := h.contractService.InternalGet(contractID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, contract)
}

// IsLatestRun 过期检查
// GET /api/contracts/:id/internal/pipeline/:run_id/is-latest
func (h *InternalContractHandler) IsLatestRun(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	runID := c.Param("run_id")
	if runID == "" {
		response.ParamError(c, "缺少 run_id")
		return
	}

	latest, err := h.contractService.InternalIsLatestRun(contractID, runID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, dto.IsLatestRunResponse{IsLatest: latest})
}

// ChangeState 推进合同状态
// PUT /api/contracts/:id/internal/change-state?state=xxx&run_id=xxx
func (h *InternalContractHandler) ChangeState(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	var req dto.ChangeStateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.contractService.InternalChangeState(contractID, req.State, req.RunID); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// SetAnalysisResult 写入条款分析结果
// POST /api/contracts/:id/internal/set-analysis-result
func (h *InternalContractHandler) SetAnalysisResult(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	var result model.AnalysisResult
	if err := c.ShouldBindJSON(&result); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.contractService.InternalSetAnalysisResult(contractID, &result); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// SetEvaluationResult 写入健康度评估结果
// POST /api/contracts/:id/internal/set-evaluation-result
func (h *InternalContractHandler) SetEvaluationResult(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	var result model.EvaluationResult
	if err := c.ShouldBindJSON(&result); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.contractService.InternalSetEvaluationResult(contractID, &result); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// ReportFailure 标记合同失败（幂等）
// PUT /api/contracts/:id/internal/failed
func (h *InternalContractHandler) ReportFailure(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	var req dto.ReportFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.contractService.InternalMarkFailed(contractID, req.ErrorMessage); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// Status 轻量状态查询
// GET /api/contracts/:id/internal/status
func (h *InternalContractHandler) Status(c *gin.Context) {
	contractID, ok := h.contractID(c)
	if !ok {
		return
	}

	status, err := h.contractService.InternalStatus(contractID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, status)
}

func (h *InternalContractHandler) contractID(c *gin.Context) (int64, bool) {
	contractID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的合同ID")
		return 0, false
	}
	return contractID, true
}

func (h *InternalContractHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContractNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrAnalysisRequired):
		response.ConflictError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
