package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/internal/api/middleware"
	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pkg/response"
	"github.com/pwcx/contract_go_server/internal/service"
)

type ContractHandler struct {
	contractService *service.ContractService
}

func NewContractHandler(contractService *service.ContractService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
	}
}

// Upload 上传合同
// POST /api/contracts/upload
func (h *ContractHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "请上传文件")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	title := c.PostForm("title")

	var clientID *int64
	if raw := c.PostForm("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ParamError(c, "无效的客户ID")
			return
		}
		clientID = &id
	}

	resp, err := h.contractService.Upload(userID, header.Filename, title, clientID, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFileType):
			response.ParamError(c, "仅支持 PDF 格式")
		case errors.Is(err, service.ErrFileTooLarge):
			response.ParamError(c, "文件超出大小限制")
		case errors.Is(err, service.ErrClientNotFound):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "上传成功", resp)
}

// List 获取合同列表
// GET /api/contracts
func (h *ContractHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := c.Query("search")
	status := c.Query("status")

	var clientID *int64
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ParamError(c, "无效的客户ID")
			return
		}
		clientID = &id
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.contractService.List(userID, page, pageSize, search, status, clientID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 获取合同详情
// GET /api/contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, contractID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	detail, err := h.contractService.GetByID(userID, contractID)
	if err != nil {
		h.writeContractError(c, err)
		return
	}

	response.Success(c, detail)
}

// Update 更新合同元数据
// PUT /api/contracts/:id
func (h *ContractHandler) Update(c *gin.Context) {
	userID, contractID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	var req dto.UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.contractService.Update(userID, contractID, &req)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			response.ParamError(c, err.Error())
			return
		}
		h.writeContractError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", detail)
}

// Delete 删除合同
// DELETE /api/contracts/:id
func (h *ContractHandler) Delete(c *gin.Context) {
	userID, contractID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	if err := h.contractService.Delete(userID, contractID); err != nil {
		h.writeContractError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Download 下载原始合同文件
// GET /api/contracts/:id/download
func (h *ContractHandler) Download(c *gin.Context) {
	userID, contractID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	data, contentType, filename, err := h.contractService.Download(userID, contractID)
	if err != nil {
		h.writeContractError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, contentType, data)
}

// TriggerAnalysis 触发分析流水线
// POST /api/contracts/:id/analyze
func (h *ContractHandler) TriggerAnalysis(c *gin.Context) {
	userID, contractID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	resp, err := h.contractService.TriggerAnalysis(c.Request.Context(), userID, contractID)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisInProgress) {
			response.ConflictError(c, err.Error())
			return
		}
		h.writeContractError(c, err)
		return
	}

	response.SuccessWithMessage(c, "分析任务已提交", resp)
}

// Status 轻量状态查询，前端轮询用
// GET /api/contracts/:id/status
func (h *ContractHandler) Status(c *gin.Context) {
	userID, contractID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	status, err := h.contractService.Status(userID, contractID)
	if err != nil {
		h.writeContractError(c, err)
		return
	}

	response.Success(c, status)
}

func (h *ContractHandler) requestIDs(c *gin.Context) (userID, contractID int64, ok bool) {
	userID, ok = middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return 0, 0, false
	}

	contractID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的合同ID")
		return 0, 0, false
	}
	return userID, contractID, true
}

func (h *ContractHandler) writeContractError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContractNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrNotContractOwner):
		response.PermissionError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
