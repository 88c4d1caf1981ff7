package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pwcx/contract_go_server/config"
	"github.com/pwcx/contract_go_server/internal/database"
	"github.com/pwcx/contract_go_server/internal/pipeline"
	"github.com/pwcx/contract_go_server/internal/pkg/ai"
	"github.com/pwcx/contract_go_server/internal/pkg/pubsub"
	"github.com/pwcx/contract_go_server/internal/pkg/queue"
	"github.com/pwcx/contract_go_server/internal/pkg/storage"
	"github.com/pwcx/contract_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	// 初始化 AI 客户端
	aiClient, err := ai.New(&cfg.AI)
	if err != nil {
		log.Fatalf("Failed to init ai client: %v", err)
	}
	log.Printf("AI client initialized (model: %s)", aiClient.ModelName())

	// 初始化队列和发布者
	pipelineQueue := queue.NewQueue(rdb, cfg.Queue.PipelineQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 注册流水线执行器
	registry := pipeline.NewRegistry(pipeline.Deps{
		Store:       store,
		AI:          aiClient,
		ParseWithAI: cfg.AI.ParseWithAI,
	})
	processor := worker.NewProcessor(registry, publisher)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)

	// 启动 worker 循环
	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					// 从队列获取任务
					msg, err := pipelineQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop task: %v", workerID, err)
						// Redis 持续不可用时避免空转刷日志
						time.Sleep(time.Second)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing run %s for contract %d", workerID, msg.RunID, msg.ContractID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: run %s failed: %v", workerID, msg.RunID, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
