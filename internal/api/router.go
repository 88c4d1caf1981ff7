package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/api/handler"
	"github.com/pwcx/contract_go_server/internal/api/middleware"
	"github.com/pwcx/contract_go_server/internal/repository"
)

type Router struct {
	authHandler      *handler.AuthHandler
	contractHandler  *handler.ContractHandler
	internalHandler  *handler.InternalContractHandler
	clientHandler    *handler.ClientHandler
	genaiHandler     *handler.GenAIHandler
	metricsHandler   *handler.MetricsHandler
	healthHandler    *handler.HealthHandler
	websocketHandler *handler.WebSocketHandler
	logRepo          *repository.LogRepository
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	contractHandler *handler.ContractHandler,
	internalHandler *handler.InternalContractHandler,
	clientHandler *handler.ClientHandler,
	genaiHandler *handler.GenAIHandler,
	metricsHandler *handler.MetricsHandler,
	healthHandler *handler.HealthHandler,
	websocketHandler *handler.WebSocketHandler,
	logRepo *repository.LogRepository,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		contractHandler:  contractHandler,
		internalHandler:  internalHandler,
		clientHandler:    clientHandler,
		genaiHandler:     genaiHandler,
		metricsHandler:   metricsHandler,
		healthHandler:    healthHandler,
		websocketHandler: websocketHandler,
		logRepo:          logRepo,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))
	if r.logRepo != nil {
		engine.Use(middleware.RequestLogger(r.logRepo))
	}

	// 本地存储模式下直接暴露文件目录
	if r.cfg.Storage.Type == "local" {
		engine.Static("/files", r.cfg.Storage.LocalPath)
	}

	api := engine.Group("/api")
	{
		api.GET("/health", r.healthHandler.Check)

		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 需要登录的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/auth/me", r.authHandler.GetProfile)

			// 合同
			contracts := authenticated.Group("/contracts")
			{
				contracts.POST("/upload", r.contractHandler.Upload)
				contracts.GET("", r.contractHandler.List)
				contracts.GET("/:id", r.contractHandler.Get)
				contracts.PUT("/:id", r.contractHandler.Update)
				contracts.DELETE("/:id", r.contractHandler.Delete)
				contracts.GET("/:id/download", r.contractHandler.Download)
				contracts.POST("/:id/analyze", r.contractHandler.TriggerAnalysis)
				// 与 analyze 等价的别名
				contracts.POST("/:id/init-pipeline", r.contractHandler.TriggerAnalysis)
				contracts.GET("/:id/status", r.contractHandler.Status)
			}

			// 客户
			clients := authenticated.Group("/clients")
			{
				clients.POST("", r.clientHandler.Create)
				clients.GET("", r.clientHandler.List)
				clients.GET("/:id", r.clientHandler.Get)
				clients.PUT("/:id", r.clientHandler.Update)
				clients.DELETE("/:id", r.clientHandler.Delete)
				clients.GET("/:id/contracts", r.clientHandler.Contracts)
			}

			// 即时分析
			genai := authenticated.Group("/genai")
			{
				genai.POST("/analyze", r.genaiHandler.Analyze)
				genai.POST("/evaluate", r.genaiHandler.Evaluate)
			}

			// 运维
			authenticated.GET("/metrics", r.metricsHandler.Metrics)
			authenticated.GET("/logs", r.metricsHandler.Logs)
		}

		// 内部回调接口，仅限 worker 的内部令牌
		internal := api.Group("/contracts/:id/internal")
		internal.Use(middleware.InternalAuth(r.cfg.JWT.Secret))
		{
			internal.GET("", r.internalHandler.Get)
			internal.GET("/status", r.internalHandler.Status)
			internal.GET("/pipeline/:run_id/is-latest", r.internalHandler.IsLatestRun)
			internal.PUT("/change-state", r.internalHandler.ChangeState)
			internal.POST("/set-analysis-result", r.internalHandler.SetAnalysisResult)
			internal.POST("/set-evaluation-result", r.internalHandler.SetEvaluationResult)
			internal.PUT("/failed", r.internalHandler.ReportFailure)
		}
	}

	return engine
}
