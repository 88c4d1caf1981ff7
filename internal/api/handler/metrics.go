package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/internal/api/middleware"
	"github.com/pwcx/contract_go_server/internal/pkg/response"
	"github.com/pwcx/contract_go_server/internal/repository"
	"github.com/pwcx/contract_go_server/internal/service"
)

type MetricsHandler struct {
	metricsService *service.MetricsService
	logRepo        *repository.LogRepository
}

func NewMetricsHandler(metricsService *service.MetricsService, logRepo *repository.LogRepository) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
		logRepo:        logRepo,
	}
}

// Metrics 平台运行指标
// GET /api/metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.metricsService.Collect(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// Logs 请求日志查询
// GET /api/logs
func (h *MetricsHandler) Logs(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	endpoint := c.Query("endpoint")
	statusCode, _ := strconv.Atoi(c.Query("status_code"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	logs, total, err := h.logRepo.List(page, pageSize, endpoint, statusCode)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, logs)
}
