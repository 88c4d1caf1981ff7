package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pkg/response"
	"github.com/pwcx/contract_go_server/internal/service"
)

// GenAIHandler 即时分析接口，直接对请求里的文本调用模型
type GenAIHandler struct {
	genaiService *service.GenAIService
}

func NewGenAIHandler(genaiService *service.GenAIService) *GenAIHandler {
	return &GenAIHandler{
		genaiService: genaiService,
	}
}

// Analyze 提取文本条款
// POST /api/genai/analyze
func (h *GenAIHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.genaiService.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Evaluate 评估文本健康度
// POST /api/genai/evaluate
func (h *GenAIHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.genaiService.Evaluate(c.Request.Context(), req.Text, req.Clauses)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *GenAIHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrEmptyText) {
		response.ParamError(c, err.Error())
		return
	}
	response.ServerError(c, "分析服务暂时不可用")
}
