package main

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/api"
	"github.com/pwcx/contract_go_server/internal/api/handler"
	"github.com/pwcx/contract_go_server/internal/database"
	"github.com/pwcx/contract_go_server/internal/pipeline"
	"github.com/pwcx/contract_go_server/internal/pkg/ai"
	"github.com/pwcx/contract_go_server/internal/pkg/cron"
	"github.com/pwcx/contract_go_server/internal/pkg/pubsub"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
	"github.com/pwcx/contract_go_server/internal/pkg/ws"
	"github.com/pwcx/contract_go_server/internal/repository"
	"github.com/pwcx/contract_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化存储
	store, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	log.Printf("Storage initialized (%s)", cfg.Storage.Type)

	// 初始化 AI 客户端（即时分析接口使用）
	aiClient, err := ai.New(&cfg.AI)
	if err != nil {
		log.Fatalf("Failed to init ai client: %v", err)
	}

	// 初始化队列和流水线协调器
	pipelineQueue := queue.NewQueue(rdb, cfg.Queue.PipelineQueue)
	coordinator := pipeline.NewCoordinator(pipelineQueue, cfg)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	contractRepo := repository.NewContractRepository(db)
	clientRepo := repository.NewClientRepository(db)
	logRepo := repository.NewLogRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, cfg)
	contractService := service.NewContractService(contractRepo, clientRepo, store, coordinator, cfg)
	clientService := service.NewClientService(clientRepo)
	genaiService := service.NewGenAIService(aiClient)
	metricsService := service.NewMetricsService(contractRepo, logRepo, pipelineQueue)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	contractHandler := handler.NewContractHandler(contractService)
	internalHandler := handler.NewInternalContractHandler(contractService)
	clientHandler := handler.NewClientHandler(clientService, contractService)
	genaiHandler := handler.NewGenAIHandler(genaiService)
	metricsHandler := handler.NewMetricsHandler(metricsService, logRepo)
	healthHandler := handler.NewHealthHandler(db, rdb)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 订阅进度消息，转发到 WebSocket
	go bridgeProgress(rdb, wsHub)

	// 中间解析文本的定时清理
	cronService := cron.NewService(store, contractRepo, cfg.Cleanup.ParsedTTLHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		contractHandler,
		internalHandler,
		clientHandler,
		genaiHandler,
		metricsHandler,
		healthHandler,
		websocketHandler,
		logRepo,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// bridgeProgress 把 Redis 上的进度消息推送给对应用户的 WebSocket 连接
func bridgeProgress(rdb *redis.Client, hub *ws.Hub) {
	subscriber := pubsub.NewSubscriber(rdb)
	err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
		if msg.UserID == 0 {
			return
		}
		if err := hub.SendToUser(msg.UserID, &ws.Message{
			Type: msg.Type,
			Data: msg,
		}); err != nil {
			log.Printf("Failed to push progress to user %d: %v", msg.UserID, err)
		}
	})
	if err != nil && err != context.Canceled {
		log.Printf("Progress subscriber stopped: %v", err)
	}
}
