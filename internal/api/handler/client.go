package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/internal/api/middleware"
	"github.com/pwcx/contract_go_server/internal/model/dto"
	"github.com/pwcx/contract_go_server/internal/pkg/response"
	"github.com/pwcx/contract_go_server/internal/service"
)

type ClientHandler struct {
	clientService   *service.ClientService
	contractService *service.ContractService
}

func NewClientHandler(clientService *service.ClientService, contractService *service.ContractService) *ClientHandler {
	return &ClientHandler{
		clientService:   clientService,
		contractService: contractService,
	}
}

// Create 创建客户
// POST /api/clients
func (h *ClientHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.clientService.Create(userID, &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "创建成功", info)
}

// List 客户列表
// GET /api/clients
func (h *ClientHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := c.Query("search")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.clientService.List(userID, page, pageSize, search)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 客户详情
// GET /api/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	userID, clientID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	info, err := h.clientService.GetByID(userID, clientID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, info)
}

// Update 更新客户
// PUT /api/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	userID, clientID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	var req dto.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.clientService.Update(userID, clientID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", info)
}

// Delete 删除客户
// DELETE /api/clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	userID, clientID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	if err := h.clientService.Delete(userID, clientID); err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Contracts 某个客户下的合同列表
// GET /api/clients/:id/contracts
func (h *ClientHandler) Contracts(c *gin.Context) {
	userID, clientID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	// 先确认客户归属，避免把空列表和客户不存在混为一谈
	if _, err := h.clientService.GetByID(userID, clientID); err != nil {
		h.writeError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, total, err := h.contractService.List(userID, page, pageSize, "", c.Query("status"), &clientID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

func (h *ClientHandler) requestIDs(c *gin.Context) (userID, clientID int64, ok bool) {
	userID, ok = middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return 0, 0, false
	}

	clientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的客户ID")
		return 0, 0, false
	}
	return userID, clientID, true
}

func (h *ClientHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrClientNotFound) {
		response.NotFoundError(c, err.Error())
		return
	}
	response.ServerError(c, "")
}
